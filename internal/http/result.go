package httpapi

import (
	"errors"
	"net/http"

	"dental-ledger/internal/domain"
)

// Result response envelope shared by every ledger route
// - code: ResultSuccess on success, one of the Result* error codes otherwise
// - type: 'success' | 'error'
// - message: string
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess              = 2000
	ResultError                = -1
	ResultValidation           = 4000
	ResultNotFound             = 4040
	ResultReferentialIntegrity = 4090
	ResultUnavailable          = 5030
	// ResultUncertain the write may or may not have been applied; re-read before retrying
	ResultUncertain = 5040
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

func FailCode(code int, message string) Result[any] {
	return Result[any]{Code: code, Type: "error", Message: message, Result: nil}
}

// errorResponse maps a ledger error onto an HTTP status and envelope code
func errorResponse(err error) (int, Result[any]) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, FailCode(ResultValidation, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, FailCode(ResultNotFound, err.Error())
	case errors.Is(err, domain.ErrReferentialIntegrity):
		return http.StatusConflict, FailCode(ResultReferentialIntegrity, err.Error())
	case domain.IsUncertain(err):
		return http.StatusGatewayTimeout, FailCode(ResultUncertain, err.Error())
	case errors.Is(err, domain.ErrIO):
		return http.StatusServiceUnavailable, FailCode(ResultUnavailable, err.Error())
	default:
		return http.StatusInternalServerError, Fail("internal error")
	}
}
