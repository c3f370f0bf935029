package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"dental-ledger/internal/domain"
)

const maxBodyBytes = 64 << 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readBodyJSON malformed or oversized bodies are domain.ErrValidation
func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("%w: failed to read request body: %v", domain.ErrValidation, err)
	}
	if int64(len(body)) > maxBytes {
		return domain.Validationf("request body exceeds %d bytes", maxBytes)
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return domain.Validationf("field %s has the wrong type", typeErr.Field)
		}
		return domain.Validationf("request body is not valid JSON")
	}
	return nil
}
