package step

import (
	"errors"
	"fmt"

	"github.com/roach88/imputer/internal/meta"
)

// FitErrorCode categorizes fit errors.
type FitErrorCode string

const (
	// ErrCodeTypeIncompatible indicates a statistic undefined for a column's type.
	ErrCodeTypeIncompatible FitErrorCode = "TYPE_INCOMPATIBLE"

	// ErrCodeBadResult indicates the engine returned a row that does not
	// match the requested measures.
	ErrCodeBadResult FitErrorCode = "BAD_RESULT"

	// ErrCodeInvalidStep indicates a step that was not built by a constructor.
	ErrCodeInvalidStep FitErrorCode = "INVALID_STEP"
)

// FitError is returned when a step cannot be fitted.
//
// Selection errors and engine errors are never wrapped in a FitError; they
// reach the caller unmodified.
type FitError struct {
	// Code identifies the error category.
	Code FitErrorCode

	// Message is a human-readable description.
	Message string

	// Column is the offending column, if any.
	Column string

	// Stat names the statistic being fitted ("mean", "median", "mode").
	Stat string

	// Type is the column's declared type (TYPE_INCOMPATIBLE only).
	Type meta.DataType
}

// Error implements the error interface.
func (e *FitError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s: %s (column=%s)", e.Code, e.Message, e.Column)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTypeError returns true if err is a type incompatibility error.
// Uses errors.As to handle wrapped errors.
func IsTypeError(err error) bool {
	var fe *FitError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeTypeIncompatible
	}
	return false
}

// IsBadResult returns true if err is an engine result contract violation.
func IsBadResult(err error) bool {
	var fe *FitError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeBadResult
	}
	return false
}

func newTypeError(column, stat string, dt meta.DataType) *FitError {
	return &FitError{
		Code:    ErrCodeTypeIncompatible,
		Message: fmt.Sprintf("cannot compute %s of column %q: type %s is not numeric", stat, column, dt),
		Column:  column,
		Stat:    stat,
		Type:    dt,
	}
}

func newBadResult(column, format string, args ...any) *FitError {
	return &FitError{
		Code:    ErrCodeBadResult,
		Message: fmt.Sprintf(format, args...),
		Column:  column,
	}
}
