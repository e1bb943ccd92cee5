// Package fixer implements the repair classifier consulted after a step
// failure. Given the failed task, the current agent, the failure text, and
// the attempt count, it asks a fast model for exactly one of four repair
// actions: retry the same task, modify the task text, switch to a different
// agent, or abort the step.
//
// The fixer is advisory. Any completion failure, malformed response, or
// out-of-roster suggestion degrades to a plain retry so the classifier can
// never become a single point of failure for the run.
package fixer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/agent"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/logging"
)

// Action is the kind of repair the fixer recommends.
type Action string

const (
	// ActionRetrySame retries the step unchanged.
	ActionRetrySame Action = "retry_same"

	// ActionModifyTask retries the step with replacement task text.
	ActionModifyTask Action = "modify_task"

	// ActionSwitchAgent retries the step on a different capability.
	ActionSwitchAgent Action = "switch_agent"

	// ActionAbort stops retrying and marks the step failed immediately.
	ActionAbort Action = "abort"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Suggestion is one repair recommendation. It is produced per failed
// attempt, consumed immediately, and not retained.
type Suggestion struct {
	// Action is the recommended repair.
	Action Action `json:"action"`

	// Task is the replacement task text for modify_task.
	Task string `json:"task,omitempty"`

	// Agent is the target capability for switch_agent.
	Agent string `json:"agent,omitempty"`

	// Reasoning is the model's rationale, surfaced in retry events.
	Reasoning string `json:"reasoning,omitempty"`
}

// CompletionFunc is the injected fast-model completion call.
type CompletionFunc func(ctx context.Context, prompt string) (string, error)

// Fixer classifies step failures into repair actions.
type Fixer struct {
	complete CompletionFunc
	roster   *agent.Roster
	logger   *logging.Logger
}

// New creates a Fixer backed by the given completion function and roster.
// A nil logger defaults to a no-op logger.
func New(complete CompletionFunc, roster *agent.Roster, logger *logging.Logger) *Fixer {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Fixer{
		complete: complete,
		roster:   roster,
		logger:   logger,
	}
}

// retrySame is the fallback suggestion used whenever the model response
// cannot be turned into a valid suggestion.
func retrySame(reason string) Suggestion {
	return Suggestion{
		Action:    ActionRetrySame,
		Reasoning: reason,
	}
}

// Suggest asks the fast model for a repair action for a failed attempt.
// It always returns a usable Suggestion: parse failures, unknown actions,
// and invalid switch targets all degrade to retry_same.
func (f *Fixer) Suggest(ctx context.Context, task, currentAgent, failure string, attempt int) Suggestion {
	if f.complete == nil {
		return retrySame("no repair model configured")
	}

	prompt := f.buildPrompt(task, currentAgent, failure, attempt)

	response, err := f.complete(ctx, prompt)
	if err != nil {
		f.logger.Warn("fixer completion failed", "error", err)
		return retrySame("repair model unavailable, retrying unchanged")
	}

	suggestion, err := ParseSuggestion(response)
	if err != nil {
		f.logger.Warn("fixer response unparseable", "error", err)
		return retrySame("repair suggestion unparseable, retrying unchanged")
	}

	if err := f.validate(suggestion); err != nil {
		f.logger.Warn("fixer suggestion rejected", "error", err)
		return retrySame("repair suggestion invalid, retrying unchanged")
	}

	return suggestion
}

// buildPrompt renders the classification prompt for the fast model.
func (f *Fixer) buildPrompt(task, currentAgent, failure string, attempt int) string {
	var b strings.Builder
	b.WriteString("A step in an agent execution plan failed. Recommend exactly one repair action.\n\n")
	fmt.Fprintf(&b, "Task: %s\n", task)
	fmt.Fprintf(&b, "Current agent: %s\n", currentAgent)
	fmt.Fprintf(&b, "Failure: %s\n", failure)
	fmt.Fprintf(&b, "Attempt: %d\n\n", attempt)
	fmt.Fprintf(&b, "Known agents: %s\n\n", strings.Join(f.roster.Names(), ", "))
	b.WriteString("Respond with a single JSON object:\n")
	b.WriteString(`{"action": "retry_same" | "modify_task" | "switch_agent" | "abort",` + "\n")
	b.WriteString(` "task": "<replacement task text, only for modify_task>",` + "\n")
	b.WriteString(` "agent": "<target agent, only for switch_agent>",` + "\n")
	b.WriteString(` "reasoning": "<one sentence>"}` + "\n")
	return b.String()
}

// validate checks a parsed suggestion against the action contract and
// the known roster.
func (f *Fixer) validate(s Suggestion) error {
	switch s.Action {
	case ActionRetrySame, ActionAbort:
		return nil
	case ActionModifyTask:
		if strings.TrimSpace(s.Task) == "" {
			return fmt.Errorf("modify_task suggestion has no replacement task")
		}
		return nil
	case ActionSwitchAgent:
		if s.Agent == "" {
			return fmt.Errorf("switch_agent suggestion has no target agent")
		}
		if !f.roster.Known(s.Agent) {
			return fmt.Errorf("switch_agent target %q is not in the roster", s.Agent)
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
}

// fencedBlockRegex matches ```json ... ``` or ``` ... ``` fenced blocks.
var fencedBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseSuggestion extracts a Suggestion from a model response.
// It tolerates fenced code blocks and surrounding prose: if the whole
// response is not valid JSON, it tries the first fenced block, then the
// first balanced JSON object found in the text.
func ParseSuggestion(response string) (Suggestion, error) {
	candidates := []string{strings.TrimSpace(response)}

	if match := fencedBlockRegex.FindStringSubmatch(response); len(match) == 2 {
		candidates = append(candidates, match[1])
	}
	if obj := firstJSONObject(response); obj != "" {
		candidates = append(candidates, obj)
	}

	var lastErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		var s Suggestion
		if err := json.Unmarshal([]byte(candidate), &s); err != nil {
			lastErr = err
			continue
		}
		if s.Action == "" {
			lastErr = fmt.Errorf("suggestion has no action")
			continue
		}
		return s, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no JSON object found in response")
	}
	return Suggestion{}, lastErr
}

// firstJSONObject returns the first balanced top-level JSON object in s,
// or empty if none is found. Braces inside JSON strings are skipped.
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
