package plan

import (
	"fmt"
	"strings"
)

// ValidationSeverity classifies a validation message.
type ValidationSeverity string

const (
	// SeverityError indicates a problem that makes the plan unexecutable.
	SeverityError ValidationSeverity = "error"

	// SeverityWarning indicates a problem worth surfacing but not fatal.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationMessage describes a single issue found while validating a plan.
type ValidationMessage struct {
	Severity   ValidationSeverity `json:"severity"`
	Message    string             `json:"message"`
	Step       int                `json:"step,omitempty"`
	Suggestion string             `json:"suggestion,omitempty"`
}

// IsError returns true if this message has error severity.
func (m ValidationMessage) IsError() bool {
	return m.Severity == SeverityError
}

// ValidationResult aggregates all issues found while validating a plan.
type ValidationResult struct {
	IsValid      bool                `json:"is_valid"`
	Messages     []ValidationMessage `json:"messages"`
	ErrorCount   int                 `json:"error_count"`
	WarningCount int                 `json:"warning_count"`
}

// ValidateSteps performs structural validation of a step list.
// It checks for duplicate step numbers, empty agents and tasks,
// self-dependencies, references to unknown steps, and dependency cycles.
// Returns a ValidationResult containing all issues found.
func ValidateSteps(steps []Step) *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Messages: make([]ValidationMessage, 0),
	}

	add := func(msg ValidationMessage) {
		if msg.IsError() {
			result.IsValid = false
			result.ErrorCount++
		} else {
			result.WarningCount++
		}
		result.Messages = append(result.Messages, msg)
	}

	if len(steps) == 0 {
		add(ValidationMessage{
			Severity:   SeverityError,
			Message:    "Plan has no steps",
			Suggestion: "Add at least one step to the plan",
		})
		return result
	}

	known := make(map[int]bool, len(steps))
	for _, step := range steps {
		if known[step.Number] {
			add(ValidationMessage{
				Severity:   SeverityError,
				Message:    fmt.Sprintf("Duplicate step number %d", step.Number),
				Step:       step.Number,
				Suggestion: "Renumber the steps so each number is unique",
			})
		}
		known[step.Number] = true
	}

	for _, step := range steps {
		if strings.TrimSpace(step.Agent) == "" {
			add(ValidationMessage{
				Severity:   SeverityError,
				Message:    "Step has no agent capability",
				Step:       step.Number,
				Suggestion: "Assign a capability name to the step",
			})
		}

		if strings.TrimSpace(step.Task) == "" {
			add(ValidationMessage{
				Severity:   SeverityWarning,
				Message:    "Step has no task text",
				Step:       step.Number,
				Suggestion: "Add instruction text for the agent",
			})
		}

		for _, dep := range step.DependsOn {
			if dep == step.Number {
				add(ValidationMessage{
					Severity:   SeverityError,
					Message:    "Step depends on itself",
					Step:       step.Number,
					Suggestion: "Remove the self-dependency",
				})
				continue
			}
			if !known[dep] {
				add(ValidationMessage{
					Severity:   SeverityError,
					Message:    fmt.Sprintf("Depends on unknown step %d", dep),
					Step:       step.Number,
					Suggestion: fmt.Sprintf("Remove %d from dependencies or add a step with that number", dep),
				})
			}
		}
	}

	if cycle := DetectDependencyCycle(steps); cycle != nil {
		add(ValidationMessage{
			Severity:   SeverityError,
			Message:    fmt.Sprintf("Dependency cycle detected: %s", formatCycle(cycle)),
			Step:       cycle[0],
			Suggestion: "Remove one of the dependencies to break the cycle",
		})
	}

	return result
}

// DetectDependencyCycle detects a dependency cycle in the step list.
// Returns the step numbers forming the cycle if found, nil otherwise.
//
// This is a pure function over the immutable step list: it performs a
// depth-first walk from every unvisited step, tracking a recursion stack,
// and reports a cycle when a step is revisited while still on the stack.
// Self-dependencies are ignored here; ValidateSteps reports them with a
// dedicated message.
func DetectDependencyCycle(steps []Step) []int {
	byNumber := make(map[int]*Step, len(steps))
	for i := range steps {
		byNumber[steps[i].Number] = &steps[i]
	}

	visited := make(map[int]bool)
	recStack := make(map[int]bool)
	parent := make(map[int]int)

	var dfs func(num int) []int
	dfs = func(num int) []int {
		visited[num] = true
		recStack[num] = true

		step := byNumber[num]
		if step == nil {
			recStack[num] = false
			return nil
		}

		for _, dep := range step.DependsOn {
			if dep == num {
				continue
			}
			if !visited[dep] {
				parent[dep] = num
				if cycle := dfs(dep); cycle != nil {
					return cycle
				}
			} else if recStack[dep] {
				// Found a cycle - reconstruct it by walking the parent chain
				cycle := []int{dep}
				current := num
				for current != dep {
					cycle = append([]int{current}, cycle...)
					current = parent[current]
				}
				cycle = append([]int{dep}, cycle...)
				return cycle
			}
		}

		recStack[num] = false
		return nil
	}

	for _, step := range steps {
		if !visited[step.Number] {
			if cycle := dfs(step.Number); cycle != nil {
				return cycle
			}
		}
	}

	return nil
}

// Roots returns the numbers of all steps with an empty dependency list,
// in the order they appear in the plan.
func Roots(steps []Step) []int {
	var roots []int
	for _, step := range steps {
		if len(step.DependsOn) == 0 {
			roots = append(roots, step.Number)
		}
	}
	return roots
}

// StepByNumber returns a pointer to the step with the given number,
// or nil if not found.
func StepByNumber(steps []Step, num int) *Step {
	for i := range steps {
		if steps[i].Number == num {
			return &steps[i]
		}
	}
	return nil
}

func formatCycle(cycle []int) string {
	parts := make([]string, len(cycle))
	for i, num := range cycle {
		parts[i] = fmt.Sprintf("%d", num)
	}
	return strings.Join(parts, " -> ")
}
