package errors

import (
	"strings"
	"testing"
)

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlanError(t *testing.T) {
	err := NewPlanError("circular dependency involving step 3", ErrDependencyCycle).WithStep(3)

	if !Is(err, ErrDependencyCycle) {
		t.Error("Is(ErrDependencyCycle) = false, want true")
	}
	if !Is(err, &PlanError{}) {
		t.Error("Is(PlanError{}) = false, want true")
	}
	msg := err.Error()
	for _, want := range []string{"step 3", "circular dependency"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if GetSeverity(err) != SeverityError {
		t.Errorf("GetSeverity() = %v, want %v", GetSeverity(err), SeverityError)
	}
	if IsRetryable(err) {
		t.Error("plan errors should not be retryable")
	}
}

func TestExecutionError(t *testing.T) {
	err := NewExecutionError("dispatch timed out", ErrDispatchFailed).
		WithStep(2).
		WithAttempt(3)

	if !Is(err, ErrDispatchFailed) {
		t.Error("Is(ErrDispatchFailed) = false, want true")
	}
	msg := err.Error()
	for _, want := range []string{"step=2", "attempt=3", "dispatch timed out"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}

	if !IsRetryable(err) {
		t.Error("execution errors should default to retryable")
	}
	if IsRetryable(err.WithRetryable(false)) {
		t.Error("WithRetryable(false) still reports retryable")
	}
}

func TestFixerError(t *testing.T) {
	err := NewFixerError("suggestion rejected", nil).WithAgent("coder-codex")

	if !strings.Contains(err.Error(), "coder-codex") {
		t.Errorf("Error() = %q, want agent name", err.Error())
	}
	if GetSeverity(err) != SeverityWarning {
		t.Errorf("GetSeverity() = %v, want warning", GetSeverity(err))
	}
	if !IsRetryable(err) {
		t.Error("fixer errors should be retryable")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("max_concurrency", "-1", "must be positive")

	if !Is(err, ErrInvalidInput) {
		t.Error("Is(ErrInvalidInput) = false, want true")
	}
	msg := err.Error()
	for _, want := range []string{"max_concurrency", "must be positive"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if IsRetryable(err) {
		t.Error("validation errors should not be retryable")
	}
}

func TestErrorChain(t *testing.T) {
	cause := ErrStepFailed
	err := NewExecutionError("attempts exhausted", cause).WithStep(5)

	if !Is(err, ErrStepFailed) {
		t.Error("Is() does not see the wrapped sentinel")
	}

	var extracted *ExecutionError
	if !As(err, &extracted) {
		t.Fatal("As() should extract ExecutionError")
	}
	if extracted.Step != 5 {
		t.Errorf("Step = %d, want 5", extracted.Step)
	}
}

func TestClassificationOfPlainErrors(t *testing.T) {
	plain := New("plain error")

	if IsRetryable(plain) {
		t.Error("plain errors should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if got := GetSeverity(plain); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want error default", got)
	}
}

func TestSentinelErrorsDistinct(t *testing.T) {
	sentinels := []error{
		ErrPlanInvalid,
		ErrDependencyCycle,
		ErrStepNotFound,
		ErrStepFailed,
		ErrStepAborted,
		ErrRunCanceled,
		ErrExecutorBusy,
		ErrUnknownCapability,
		ErrDispatchFailed,
		ErrInvalidInput,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && Is(err1, err2) {
				t.Errorf("sentinel %v should not match %v", err1, err2)
			}
		}
	}
}

func TestReexportedFunctions(t *testing.T) {
	base := New("base error")
	joined := Join(base, New("second"))

	if !Is(joined, base) {
		t.Error("Join() result should match its members")
	}
	if Unwrap(NewPlanError("msg", base)) == nil {
		t.Error("Unwrap() should return the cause")
	}
}
