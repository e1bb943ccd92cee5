package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
)

// CommandDispatcher executes agent tasks by shelling out to per-capability
// commands. It exists so the CLI can run real plans without an in-process
// model backend; the executor itself only sees the injected dispatch
// function.
//
// The dispatched command receives the prompt (assembled context followed by
// the task text) on stdin and reports its result on stdout. A non-zero exit
// status marks the attempt as failed with stderr as the failure text.
type CommandDispatcher struct {
	commands map[string]string
	fallback string
}

// NewCommandDispatcher creates a dispatcher from a capability-to-command
// map. The fallback command is used for capabilities without an explicit
// entry; if empty, dispatching an unmapped capability fails.
func NewCommandDispatcher(commands map[string]string, fallback string) *CommandDispatcher {
	cloned := make(map[string]string, len(commands))
	for k, v := range commands {
		cloned[k] = v
	}
	return &CommandDispatcher{
		commands: cloned,
		fallback: fallback,
	}
}

// Execute runs the configured command for the task's capability and blocks
// until it finishes or the context is canceled. The returned AgentResult
// carries the command's stdout on success or its stderr on failure; a
// failed command is reported as an unsuccessful result, not an error.
func (d *CommandDispatcher) Execute(ctx context.Context, userID string, task plan.AgentTask) (plan.AgentResult, error) {
	command, ok := d.commands[task.Agent]
	if !ok {
		command = d.fallback
	}
	if command == "" {
		return plan.AgentResult{}, fmt.Errorf("no command configured for capability %q", task.Agent)
	}

	var prompt strings.Builder
	if task.Context != "" {
		prompt.WriteString(task.Context)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString(task.Task)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdin = strings.NewReader(prompt.String())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(cmd.Environ(),
		"LUNA_AGENT="+task.Agent,
		"LUNA_USER="+userID,
	)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() != nil {
		return plan.AgentResult{}, ctx.Err()
	}

	if err != nil {
		failure := strings.TrimSpace(stderr.String())
		if failure == "" {
			failure = err.Error()
		}
		return plan.AgentResult{
			AgentName: task.Agent,
			Success:   false,
			Result:    failure,
			Duration:  duration,
		}, nil
	}

	return plan.AgentResult{
		AgentName: task.Agent,
		Success:   true,
		Result:    strings.TrimSpace(stdout.String()),
		Duration:  duration,
	}, nil
}

// CommandCompletion returns a completion function backed by a shell
// command. The prompt is supplied on stdin and the completion read from
// stdout; a non-zero exit status is an error. It backs the fixer and the
// summarizer when those are configured as external commands.
func CommandCompletion(command string) func(ctx context.Context, prompt string) (string, error) {
	return func(ctx context.Context, prompt string) (string, error) {
		var stdout, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdin = strings.NewReader(prompt)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			failure := strings.TrimSpace(stderr.String())
			if failure == "" {
				failure = err.Error()
			}
			return "", fmt.Errorf("completion command failed: %s", failure)
		}
		return strings.TrimSpace(stdout.String()), nil
	}
}
