package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure detected while hosting a run.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, if known.
	RunID string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates the run exceeded max steps.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeLoopPanic indicates a task panicked on the Run goroutine.
	ErrCodeLoopPanic RuntimeErrorCode = "LOOP_PANIC"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and StepsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeQuotaExceeded {
		return true
	}
	var se *StepsExceededError
	return errors.As(err, &se)
}

// IsLoopPanic returns true if the error reports a recovered panic.
func IsLoopPanic(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeLoopPanic
	}
	return false
}

// NewQuotaError wraps a StepsExceededError as a RuntimeError.
func NewQuotaError(se *StepsExceededError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("run exceeded max steps (%d > %d)", se.Steps, se.Limit),
		RunID:   se.RunID,
		Cause:   se,
		Details: map[string]string{
			"steps":     fmt.Sprintf("%d", se.Steps),
			"max_steps": fmt.Sprintf("%d", se.Limit),
		},
	}
}

// NewLoopPanicError creates a RuntimeError for a recovered panic value.
func NewLoopPanicError(runID string, recovered any) *RuntimeError {
	re := &RuntimeError{
		Code:    ErrCodeLoopPanic,
		Message: fmt.Sprintf("task panicked: %v", recovered),
		RunID:   runID,
	}
	if err, ok := recovered.(error); ok {
		re.Cause = err
	}
	return re
}
