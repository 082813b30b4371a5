package operations

import (
	"errors"
	"fmt"

	"contactsift/pkg/contracts/domain"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeCancellation ErrorType = "cancellation"
)

// OperationError represents a step failure that aborts the run
type OperationError struct {
	Type    ErrorType `json:"type"`
	Step    string    `json:"step,omitempty"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := fmt.Sprintf("[%s] %s", e.Type, e.Message)
	if e.Step != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError reports an unusable operation request
func NewValidationError(message string) *OperationError {
	return &OperationError{Type: ErrorTypeValidation, Message: message}
}

// NewExecutionError wraps a step failure
func NewExecutionError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeExecution,
		Step:    step,
		Message: "step execution failed",
		Cause:   cause,
	}
}

// NewCancellationError reports a run abandoned before step
func NewCancellationError(step string, cause error) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Message: "operation cancelled",
		Cause:   cause,
	}
}

// SkipError is returned by a Step that cannot apply to the current data.
// The run continues and the condition is reported.
type SkipError struct {
	Condition domain.Condition
}

func (e *SkipError) Error() string {
	return "step skipped: " + e.Condition.Message
}

// Skip builds a SkipError for cond
func Skip(cond domain.Condition) error {
	return &SkipError{Condition: cond}
}

// IsSkip reports whether err is a SkipError
func IsSkip(err error) bool {
	var s *SkipError
	return errors.As(err, &s)
}
