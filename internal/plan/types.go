// Package plan provides types and utilities for Luna execution plans.
//
// A plan is a flat list of numbered steps, each assigned to a named agent
// capability and optionally depending on earlier steps. Plans are produced
// elsewhere (by the planning layer or hand-written plan files); this package
// defines the data types, structural validation, and plan file parsing used
// by the executor.
//
// These are pure data types with no behavior beyond validation helpers,
// designed to be shared between the executor, the fixer, and the CLI.
package plan

import "time"

// -----------------------------------------------------------------------------
// Plan Steps
// -----------------------------------------------------------------------------

// Step is one unit of work in a plan.
//
// Steps are identified by a unique ordinal number. DependsOn lists the
// numbers of steps whose output this step needs; a step with no dependencies
// is a root and may start immediately.
type Step struct {
	// Number is the unique ordinal identifying this step within the plan.
	Number int `json:"step" yaml:"step"`

	// Agent is the capability name of the worker this step requires
	// (e.g. "researcher", "coder-claude").
	Agent string `json:"agent" yaml:"agent"`

	// Task is the instruction text given to the agent.
	Task string `json:"task" yaml:"task"`

	// DependsOn lists step numbers that must complete before this step runs.
	DependsOn []int `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// AgentTask is a dispatch package sent to a worker for a single attempt.
//
// A fresh AgentTask is created per attempt: retries and fixer-driven task
// rewrites produce new values rather than mutating the original Step.
type AgentTask struct {
	// Agent is the capability name the task is addressed to.
	Agent string `json:"agent"`

	// Task is the instruction text, possibly rewritten by the fixer.
	Task string `json:"task"`

	// Context is the assembled textual context from dependency outputs.
	// Empty for steps with no dependencies and no original context.
	Context string `json:"context,omitempty"`
}

// AgentResult is the outcome of one dispatch to a worker.
type AgentResult struct {
	// AgentName is the capability that produced this result.
	AgentName string `json:"agent_name"`

	// Success reports whether the dispatch succeeded.
	Success bool `json:"success"`

	// Result holds the output text on success, or the error text on failure.
	Result string `json:"result"`

	// Duration is how long the dispatch took.
	Duration time.Duration `json:"duration"`
}

// -----------------------------------------------------------------------------
// Plan Document
// -----------------------------------------------------------------------------

// Document is a parsed plan file: an ordered step list plus optional
// free-text metadata carried through from the planning layer.
type Document struct {
	// Summary is a one-line description of what the plan achieves.
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Context is the original orchestration context handed to root steps.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`

	// Steps is the ordered list of plan steps.
	Steps []Step `json:"steps" yaml:"steps"`
}
