package app

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery indicates a blank recommendation query.
	ErrEmptyQuery = errors.New("query must not be empty")
	// ErrUnauthorized indicates a missing or wrong delete passcode. It is
	// returned before any existence check so failed attempts reveal nothing.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates the deletion target does not exist.
	ErrNotFound = errors.New("review not found")
)

// ValidationError reports a user-correctable submission problem.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
