package identity

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel behind every ValidationError.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
