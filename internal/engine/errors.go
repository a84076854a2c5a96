package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/imputer/internal/selector"
	"github.com/roach88/imputer/internal/step"
)

// BatchError represents a failure of one FitAll call.
//
// The underlying cause (a selector, step or engine error) is kept in Err and
// reachable through errors.As / errors.Is.
type BatchError struct {
	// Code identifies the error category.
	Code BatchErrorCode

	// Message is a human-readable description.
	Message string

	// FitToken identifies the affected batch.
	FitToken string

	// StepName identifies the failing step, if any.
	StepName string

	// Err is the underlying cause.
	Err error
}

// BatchErrorCode categorizes batch errors.
type BatchErrorCode string

const (
	// ErrCodeInvalidBatch indicates an empty, unnamed or duplicate step name.
	ErrCodeInvalidBatch BatchErrorCode = "INVALID_BATCH"

	// ErrCodeQuotaExceeded indicates more steps than the engine allows.
	ErrCodeQuotaExceeded BatchErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeStepFailed indicates a step could not be fitted.
	ErrCodeStepFailed BatchErrorCode = "STEP_FAILED"

	// ErrCodePersistFailed indicates a fitted transform could not be saved.
	ErrCodePersistFailed BatchErrorCode = "PERSIST_FAILED"
)

// Error implements the error interface.
func (e *BatchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.StepName != "" {
		msg += fmt.Sprintf(" (step=%s)", e.StepName)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// IsStepFailure returns true if err is a step fitting failure.
// Uses errors.As to handle wrapped errors.
func IsStepFailure(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Code == ErrCodeStepFailed
	}
	return false
}

// IsQuotaError returns true if err is a quota exceeded error.
func IsQuotaError(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Code == ErrCodeQuotaExceeded
	}
	return false
}

// RootCode returns the code of the innermost categorized error in err's
// chain: a selector code, then a step fit code, then a batch code.
// Returns "" for nil and "UNKNOWN" for uncategorized errors.
func RootCode(err error) string {
	if err == nil {
		return ""
	}
	var se *selector.Error
	if errors.As(err, &se) {
		return string(se.Code)
	}
	var fe *step.FitError
	if errors.As(err, &fe) {
		return string(fe.Code)
	}
	var be *BatchError
	if errors.As(err, &be) {
		return string(be.Code)
	}
	return "UNKNOWN"
}

func newStepError(fitToken, stepName string, err error) *BatchError {
	return &BatchError{
		Code:     ErrCodeStepFailed,
		Message:  "fit failed",
		FitToken: fitToken,
		StepName: stepName,
		Err:      err,
	}
}

func newQuotaError(steps, maxSteps int) *BatchError {
	return &BatchError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("batch exceeds max steps (%d > %d)", steps, maxSteps),
	}
}
