package session

import (
	"errors"
	"fmt"
)

var (
	ErrValidationFailed  = errors.New("validation failed")
	ErrSessionNotFound   = errors.New("session not found")
	ErrUnauthorized      = errors.New("only the host can do that")
	ErrPersistenceFailed = errors.New("persistence failed")
)

// ValidationError names the input field that was missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
