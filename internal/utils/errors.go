package utils

import (
	"errors"
	"fmt"
)

// Sentinel error categories. Callers classify with errors.Is and the
// handler layer maps each category onto an HTTP status.
var (
	// ErrValidation marks malformed input; no state change happened.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing entity or pending-delete row.
	ErrNotFound = errors.New("record not found")

	// ErrConflict marks an operation rejected by current state, e.g. a
	// second pending deletion request for the same entity.
	ErrConflict = errors.New("conflict")

	// ErrComputation marks a per-product failure inside a batch run; the
	// batch logs it and continues.
	ErrComputation = errors.New("computation failed")

	// ErrPersistence marks a database failure; the enclosing transaction
	// rolled back as a whole.
	ErrPersistence = errors.New("persistence failed")
)

// Validationf wraps ErrValidation with a formatted reason.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted reason.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict with a formatted reason.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
