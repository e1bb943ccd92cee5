package executor

import (
	"time"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/fixer"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
)

// EventType identifies the kind of event emitted during plan execution.
type EventType string

const (
	// EventStepStarted indicates a step has begun execution.
	EventStepStarted EventType = "step_started"

	// EventStepCompleted indicates a step finished successfully.
	EventStepCompleted EventType = "step_completed"

	// EventStepFailed indicates a step exhausted its attempts or was aborted.
	EventStepFailed EventType = "step_failed"

	// EventStepRetrying indicates a failed step is about to retry, via the
	// coding-agent failover or a fixer suggestion.
	EventStepRetrying EventType = "step_retrying"

	// EventStepSkipped indicates a step was skipped because a dependency failed.
	EventStepSkipped EventType = "step_skipped"

	// EventParallelStatus is a snapshot of currently-running agents and
	// overall progress, emitted after every settlement.
	EventParallelStatus EventType = "parallel_status"

	// EventStatus carries an informational progress message.
	EventStatus EventType = "status"

	// EventDone is the terminal event carrying the run outcome.
	// Exactly one is emitted per run, after which the channel is closed.
	EventDone EventType = "done"
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	return string(e)
}

// Event represents a single occurrence during plan execution.
//
// Events are emitted through the channel returned by ExecuteStream. Only
// the fields relevant to the event's Type are populated.
type Event struct {
	// Type identifies what kind of event this is.
	Type EventType `json:"type"`

	// RunID identifies the run this event belongs to.
	RunID string `json:"run_id,omitempty"`

	// Step is the step number this event relates to (if applicable).
	Step int `json:"step,omitempty"`

	// Agent is the capability involved (if applicable).
	Agent string `json:"agent,omitempty"`

	// Attempt is the attempt number about to run, for step_retrying.
	Attempt int `json:"attempt,omitempty"`

	// Message provides human-readable context for the event.
	Message string `json:"message,omitempty"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Result carries the step's AgentResult for step_completed,
	// step_failed, and step_skipped.
	Result *plan.AgentResult `json:"result,omitempty"`

	// Suggestion carries the fixer's recommendation for step_retrying
	// events on the fixer path. Nil for the auto-failover path.
	Suggestion *fixer.Suggestion `json:"suggestion,omitempty"`

	// Running lists the agent names of currently-running steps,
	// for parallel_status.
	Running []string `json:"running,omitempty"`

	// Finished is the completed+skipped step count, for parallel_status.
	Finished int `json:"finished,omitempty"`

	// Total is the total number of steps in the plan, for parallel_status.
	Total int `json:"total,omitempty"`

	// Results maps completed step numbers to their results, for done.
	Results map[int]plan.AgentResult `json:"results,omitempty"`

	// Success reports whether every step completed, for done.
	Success bool `json:"success,omitempty"`

	// Error is the summary error text when the run was unsuccessful,
	// for done.
	Error string `json:"error,omitempty"`
}
