// Package apperrors provides structured application errors with HTTP status mapping.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for classification via errors.Is().
var (
	ErrValidation    = errors.New("validation error")
	ErrUnknownMethod = errors.New("unknown method")
	ErrInternal      = errors.New("internal error")
)

// Error provides structured error with context.
type Error struct {
	Sentinel error    // Wrapped sentinel for errors.Is() classification
	Message  string   // Human-readable message
	Field    string   // For validation errors (e.g., "source_image", "timeout")
	Method   string   // For unknown method errors: the name the caller requested
	Known    []string // For unknown method errors: the valid name/alias set
	Op       string   // Operation that failed (e.g., "worker.invoke")
	Cause    error    // Underlying error
}

// Error returns the human-readable error message, prefixed with the field
// for validation errors so batch callers can name the offending job.
func (e *Error) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the sentinel error for errors.Is() classification.
func (e *Error) Unwrap() error {
	return e.Sentinel
}

// Validation creates a validation error for a specific field.
func Validation(field, message string) error {
	return &Error{
		Sentinel: ErrValidation,
		Message:  message,
		Field:    field,
	}
}

// UnknownMethod creates an unknown-method error carrying the full set of
// valid names and aliases so callers can render an actionable message.
func UnknownMethod(requested string, known []string) error {
	return &Error{
		Sentinel: ErrUnknownMethod,
		Message:  fmt.Sprintf("unknown method %q (valid: %s)", requested, strings.Join(known, ", ")),
		Method:   requested,
		Known:    known,
	}
}

// Internal creates an internal error wrapping an underlying cause.
func Internal(op string, cause error) error {
	return &Error{
		Sentinel: ErrInternal,
		Message:  fmt.Sprintf("%s: %v", op, cause),
		Op:       op,
		Cause:    cause,
	}
}
