package gateway

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrConflict: Create sobre un registro que ya existe.
	ErrConflict = errors.New("record already exists")
)

// retryable: solo fallas de conectividad. NotFound/Validation nunca se reintentan.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) {
		return false
	}
	return errors.Is(err, ErrBackendUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
