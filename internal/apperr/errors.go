// Package apperr defines the error taxonomy shared by the store, the
// derivative processor and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks malformed or incomplete input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing resource, or one hidden from the caller.
	ErrNotFound = errors.New("not found")
	// ErrIntegrity marks a broken internal invariant, such as a dangling parent_id.
	ErrIntegrity = errors.New("integrity error")
	// ErrUnauthorized marks a request that failed the authorization predicate.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrStorage marks a failed database or blob write/delete.
	ErrStorage = errors.New("storage error")
	// ErrUnsupportedOperation marks an unknown derivative operation name.
	// Errors wrapping it also match ErrValidation.
	ErrUnsupportedOperation = errors.New("unsupported operation")
)

// Validation returns an ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Integrity returns an ErrIntegrity with a formatted message.
func Integrity(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}

// Unsupported returns an error matching both ErrUnsupportedOperation and ErrValidation.
func Unsupported(name string) error {
	return fmt.Errorf("%w: %w: %q", ErrValidation, ErrUnsupportedOperation, name)
}

// Storage wraps err as an ErrStorage.
func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Status maps an error onto the HTTP status the API reports for it.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
