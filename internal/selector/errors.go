package selector

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes selection errors.
type ErrorCode string

const (
	// ErrCodeColumnNotFound indicates an explicitly named column is not in the schema.
	ErrCodeColumnNotFound ErrorCode = "COLUMN_NOT_FOUND"

	// ErrCodeInvalidSelector indicates a selector that cannot be evaluated.
	ErrCodeInvalidSelector ErrorCode = "INVALID_SELECTOR"
)

// Error is returned when a selection cannot be resolved.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Column is the offending column, if any.
	Column string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s (column=%s)", e.Code, e.Message, e.Column)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsColumnNotFound returns true if err is a missing-column selection error.
// Uses errors.As to handle wrapped errors.
func IsColumnNotFound(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeColumnNotFound
	}
	return false
}

func newColumnNotFound(name string) *Error {
	return &Error{
		Code:    ErrCodeColumnNotFound,
		Message: fmt.Sprintf("column %q is not in the table schema", name),
		Column:  name,
	}
}

func newInvalid(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidSelector,
		Message: fmt.Sprintf(format, args...),
	}
}
