// Package errors provides centralized error definitions and error handling
// utilities for the Luna orchestrator. It defines domain-specific errors,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - PlanError: errors related to plan parsing and graph construction
//   - ExecutionError: errors related to step execution and scheduling
//   - FixerError: errors related to the repair classifier
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewPlanError("graph construction failed", errors.ErrDependencyCycle)
//
//	// With context wrapping
//	err := errors.NewExecutionError("dispatch failed", baseErr).WithStep(3)
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrDependencyCycle) { ... }
//
//	// Check for error types
//	var planErr *errors.PlanError
//	if errors.As(err, &planErr) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Plan-related sentinel errors
var (
	// ErrPlanInvalid indicates that a plan failed structural validation.
	ErrPlanInvalid = New("plan is invalid")
	// ErrDependencyCycle indicates a circular dependency between plan steps.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrStepNotFound indicates that a step could not be found in the graph.
	ErrStepNotFound = New("step not found")
)

// Execution-related sentinel errors
var (
	// ErrStepFailed indicates that a step exhausted its attempts.
	ErrStepFailed = New("step failed")
	// ErrStepAborted indicates that the fixer recommended aborting a step.
	ErrStepAborted = New("step aborted")
	// ErrRunCanceled indicates that the run was canceled before completion.
	ErrRunCanceled = New("run canceled")
	// ErrExecutorBusy indicates that an executor run is already in progress.
	ErrExecutorBusy = New("executor already running")
)

// Agent-related sentinel errors
var (
	// ErrUnknownCapability indicates an agent capability outside the roster.
	ErrUnknownCapability = New("unknown agent capability")
	// ErrDispatchFailed indicates that the agent dispatch callback failed.
	ErrDispatchFailed = New("agent dispatch failed")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// PlanError represents errors related to plan parsing and graph construction.
//
// Example:
//
//	err := errors.NewPlanError("graph construction failed", errors.ErrDependencyCycle).WithStep(4)
//	fmt.Println(err) // "plan error [step=4]: graph construction failed: dependency cycle detected"
type PlanError struct {
	baseError
	Step int
}

// NewPlanError creates a new PlanError.
func NewPlanError(message string, cause error) *PlanError {
	return &PlanError{
		baseError: baseError{
			message:  message,
			cause:    cause,
			severity: SeverityError,
		},
	}
}

// WithStep adds the offending step number to the error context.
func (e *PlanError) WithStep(step int) *PlanError {
	e.Step = step
	return e
}

// Error returns the formatted error message.
func (e *PlanError) Error() string {
	prefix := "plan error"
	if e.Step != 0 {
		prefix = fmt.Sprintf("plan error [step=%d]", e.Step)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PlanError) Is(target error) bool {
	if _, ok := target.(*PlanError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ExecutionError represents errors related to step execution and scheduling.
//
// Example:
//
//	err := errors.NewExecutionError("dispatch failed", cause).WithStep(2).WithAttempt(1)
type ExecutionError struct {
	baseError
	Step    int
	Attempt int
}

// NewExecutionError creates a new ExecutionError.
// Execution errors are retryable by default: the attempt loop drives them.
func NewExecutionError(message string, cause error) *ExecutionError {
	return &ExecutionError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: true,
		},
	}
}

// WithStep adds the step number to the error context.
func (e *ExecutionError) WithStep(step int) *ExecutionError {
	e.Step = step
	return e
}

// WithAttempt adds the attempt number to the error context.
func (e *ExecutionError) WithAttempt(attempt int) *ExecutionError {
	e.Attempt = attempt
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *ExecutionError) WithRetryable(r bool) *ExecutionError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *ExecutionError) Error() string {
	var parts []string
	if e.Step != 0 {
		parts = append(parts, fmt.Sprintf("step=%d", e.Step))
	}
	if e.Attempt != 0 {
		parts = append(parts, fmt.Sprintf("attempt=%d", e.Attempt))
	}

	prefix := "execution error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("execution error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ExecutionError) Is(target error) bool {
	if _, ok := target.(*ExecutionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// FixerError represents errors from the repair classifier.
//
// Fixer errors are advisory: callers are expected to swallow them and fall
// back to a plain retry rather than failing the step.
type FixerError struct {
	baseError
	Agent string
}

// NewFixerError creates a new FixerError.
func NewFixerError(message string, cause error) *FixerError {
	return &FixerError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
	}
}

// WithAgent adds the agent capability to the error context.
func (e *FixerError) WithAgent(agent string) *FixerError {
	e.Agent = agent
	return e
}

// Error returns the formatted error message.
func (e *FixerError) Error() string {
	prefix := "fixer error"
	if e.Agent != "" {
		prefix = fmt.Sprintf("fixer error [agent=%s]", e.Agent)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *FixerError) Is(target error) bool {
	if _, ok := target.(*FixerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
type ValidationError struct {
	baseError
	Field string
	Value string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			cause:    ErrInvalidInput,
			severity: SeverityError,
		},
		Field: field,
		Value: value,
	}
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error [%s=%q]: %s", e.Field, e.Value, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// classifiable is implemented by errors that carry retry metadata.
type classifiable interface {
	retryableErr() bool
	severityLevel() Severity
}

func (e *baseError) retryableErr() bool      { return e.retryable }
func (e *baseError) severityLevel() Severity { return e.severity }

// IsRetryable returns true if the error is transient and the operation
// may succeed on retry. Errors without classification metadata are
// considered non-retryable.
func IsRetryable(err error) bool {
	var c classifiable
	if errors.As(err, &c) {
		return c.retryableErr()
	}
	return false
}

// GetSeverity returns the severity of the error, or SeverityError if the
// error carries no classification metadata.
func GetSeverity(err error) Severity {
	var c classifiable
	if errors.As(err, &c) {
		return c.severityLevel()
	}
	return SeverityError
}
