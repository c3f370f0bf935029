package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ledger. Callers match with errors.Is.
var (
	ErrValidation           = errors.New("validation error")
	ErrNotFound             = errors.New("not found")
	ErrReferentialIntegrity = errors.New("referential integrity violation")
	ErrIO                   = errors.New("io error")
)

// IOError backing store unreachable or timed out.
// Uncertain is set when a write may have been applied before the failure,
// so the caller has to verify before retrying.
type IOError struct {
	Op        string
	Uncertain bool
	Err       error
}

func (e *IOError) Error() string {
	state := "not applied"
	if e.Uncertain {
		state = "outcome uncertain"
	}
	return fmt.Sprintf("%s: %s (%s): %v", ErrIO, e.Op, state, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// Validationf wraps ErrValidation with a message
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a message
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// ReferentialIntegrityf wraps ErrReferentialIntegrity with a message
func ReferentialIntegrityf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrReferentialIntegrity, fmt.Sprintf(format, args...))
}

// Kind returns the short error kind used on the wire
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrReferentialIntegrity):
		return "referential_integrity"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "internal"
	}
}

// IsUncertain reports whether err is an IOError whose write may have been applied
func IsUncertain(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr) && ioErr.Uncertain
}
