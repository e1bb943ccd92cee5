// Package event defines event types for decoupling components in the Luna
// orchestrator. These events let the CLI and TUI observe run progress
// without depending on the executor directly.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "step.started", "run.completed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Run Lifecycle Events
// -----------------------------------------------------------------------------

// RunStartedEvent is emitted when plan execution begins.
type RunStartedEvent struct {
	baseEvent
	RunID      string // Unique identifier for the run
	TotalSteps int    // Number of steps in the plan
}

// NewRunStartedEvent creates a RunStartedEvent.
func NewRunStartedEvent(runID string, totalSteps int) RunStartedEvent {
	return RunStartedEvent{
		baseEvent:  newBaseEvent("run.started"),
		RunID:      runID,
		TotalSteps: totalSteps,
	}
}

// RunCompletedEvent is emitted when plan execution finishes.
type RunCompletedEvent struct {
	baseEvent
	RunID   string // Unique identifier for the run
	Success bool   // Whether every step completed
	Error   string // Summary error text when unsuccessful
}

// NewRunCompletedEvent creates a RunCompletedEvent.
func NewRunCompletedEvent(runID string, success bool, errText string) RunCompletedEvent {
	return RunCompletedEvent{
		baseEvent: newBaseEvent("run.completed"),
		RunID:     runID,
		Success:   success,
		Error:     errText,
	}
}

// -----------------------------------------------------------------------------
// Step Lifecycle Events
// -----------------------------------------------------------------------------

// StepStartedEvent is emitted when a step begins an attempt.
type StepStartedEvent struct {
	baseEvent
	Step  int    // Step number
	Agent string // Capability dispatched to
}

// NewStepStartedEvent creates a StepStartedEvent.
func NewStepStartedEvent(step int, agent string) StepStartedEvent {
	return StepStartedEvent{
		baseEvent: newBaseEvent("step.started"),
		Step:      step,
		Agent:     agent,
	}
}

// StepSettledEvent is emitted when a step reaches a terminal state.
type StepSettledEvent struct {
	baseEvent
	Step    int    // Step number
	Agent   string // Capability that produced the final result
	Status  string // "completed", "failed", or "skipped"
	Summary string // Result summary or error text
}

// NewStepSettledEvent creates a StepSettledEvent.
func NewStepSettledEvent(step int, agent, status, summary string) StepSettledEvent {
	return StepSettledEvent{
		baseEvent: newBaseEvent("step.settled"),
		Step:      step,
		Agent:     agent,
		Status:    status,
		Summary:   summary,
	}
}

// StepRetryingEvent is emitted when a failed step is about to retry,
// either via the coding-agent failover or a fixer suggestion.
type StepRetryingEvent struct {
	baseEvent
	Step    int    // Step number
	Agent   string // Capability the retry will use
	Attempt int    // Attempt number about to run (1-based)
	Reason  string // Human-readable rationale
}

// NewStepRetryingEvent creates a StepRetryingEvent.
func NewStepRetryingEvent(step int, agent string, attempt int, reason string) StepRetryingEvent {
	return StepRetryingEvent{
		baseEvent: newBaseEvent("step.retrying"),
		Step:      step,
		Agent:     agent,
		Attempt:   attempt,
		Reason:    reason,
	}
}
