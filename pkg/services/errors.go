// Package services defines the error taxonomy shared by the memory and
// storage service layers and the agent tool boundary.
package services

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when an operation collides with existing
	// state (duplicate entity, protected builtin, concurrent update)
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable is returned when an external provider cannot be reached
	ErrUnavailable = errors.New("provider unavailable")

	// ErrTimeout is returned when an operation exceeds its deadline
	ErrTimeout = errors.New("operation timed out")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Kind maps an error to its stable public kind name. Kind names are safe
// to surface past the service layer; raw error strings are not.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return "Timeout"
	case errors.Is(err, ErrUnavailable):
		return "Unavailable"
	default:
		return "Internal"
	}
}
