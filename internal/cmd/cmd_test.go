package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/executor"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// writePlan writes a plan file into a temp directory and returns its path.
func writePlan(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write plan file: %v", err)
	}
	return path
}

// setupTestEnvironment isolates viper state and the working directory so
// runs don't pick up the developer's config or write artifacts into the
// repo.
func setupTestEnvironment(t *testing.T) {
	t.Helper()

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("failed to change working directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWD); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "luna" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "luna")
	}

	expectedCmds := []string{"run", "validate", "config", "version"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}

	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	setupTestEnvironment(t)

	path := writePlan(t, "plan.yaml", `
summary: two step plan
steps:
  - step: 1
    agent: researcher
    task: gather sources
  - step: 2
    agent: writer
    task: write summary
    depends_on: [1]
`)

	output, err := executeCommand(rootCmd, "validate", path)
	if err != nil {
		t.Fatalf("validate failed: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "valid") {
		t.Errorf("output missing valid marker: %q", output)
	}
}

func TestValidateCommandCycle(t *testing.T) {
	setupTestEnvironment(t)

	path := writePlan(t, "plan.json", `{
		"steps": [
			{"step": 1, "agent": "analyst", "task": "a", "depends_on": [2]},
			{"step": 2, "agent": "analyst", "task": "b", "depends_on": [1]}
		]
	}`)

	output, err := executeCommand(rootCmd, "validate", path)
	if err == nil {
		t.Fatal("expected validation error for cyclic plan")
	}
	if !strings.Contains(output, "cycle") {
		t.Errorf("output missing cycle message: %q", output)
	}
}

func TestValidateCommandMissingFile(t *testing.T) {
	setupTestEnvironment(t)

	if _, err := executeCommand(rootCmd, "validate", "does-not-exist.yaml"); err == nil {
		t.Fatal("expected error for missing plan file")
	}
}

func TestRunCommandPlain(t *testing.T) {
	setupTestEnvironment(t)
	viper.Set("agents.fallback", "cat")
	viper.Set("logging.enabled", false)

	path := writePlan(t, "plan.yaml", `
context: test brief
steps:
  - step: 1
    agent: researcher
    task: first task
  - step: 2
    agent: writer
    task: second task
    depends_on: [1]
`)

	output, err := executeCommand(rootCmd, "run", path, "--no-tui", "--max-retries", "0")
	if err != nil {
		t.Fatalf("run failed: %v\noutput: %s", err, output)
	}
	if !strings.Contains(output, "completed") {
		t.Errorf("output missing completion marker: %q", output)
	}
	if !strings.Contains(output, "step 2") {
		t.Errorf("output missing step 2 lines: %q", output)
	}
}

func TestRunCommandFailingStep(t *testing.T) {
	setupTestEnvironment(t)
	viper.Set("agents.fallback", "echo boom >&2; exit 1")
	viper.Set("logging.enabled", false)

	path := writePlan(t, "plan.yaml", `
steps:
  - step: 1
    agent: researcher
    task: doomed task
`)

	output, err := executeCommand(rootCmd, "run", path, "--no-tui", "--max-retries", "0")
	if err == nil {
		t.Fatalf("expected run failure, output: %s", output)
	}
	if !strings.Contains(err.Error(), "failed") {
		t.Errorf("error = %v, want failure summary", err)
	}
}

func TestRunCommandInvalidPlan(t *testing.T) {
	setupTestEnvironment(t)

	path := writePlan(t, "plan.yaml", `
steps:
  - step: 1
    agent: researcher
    task: a
    depends_on: [9]
`)

	output, err := executeCommand(rootCmd, "run", path, "--no-tui")
	if err == nil {
		t.Fatalf("expected validation failure, output: %s", output)
	}
}

func TestCancelAndDrain(t *testing.T) {
	execute := func(ctx context.Context, userID string, task plan.AgentTask) (plan.AgentResult, error) {
		<-ctx.Done()
		return plan.AgentResult{}, ctx.Err()
	}
	exec, err := executor.New(executor.DefaultConfig(), nil, execute, nil, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	steps := []plan.Step{{Number: 1, Agent: "researcher", Task: "wait forever"}}
	events, err := exec.ExecuteStream(ctx, steps, "tester", "")
	if err != nil {
		t.Fatalf("ExecuteStream() error = %v", err)
	}

	done := cancelAndDrain(cancel, events)

	if done.Type != executor.EventDone {
		t.Fatalf("drained to %v, want done", done.Type)
	}
	if done.Success {
		t.Error("canceled run reported success")
	}
	// The stream must be closed once the terminal event is drained.
	if _, ok := <-events; ok {
		t.Error("stream still open after terminal event")
	}
}

func TestConfigPathCommand(t *testing.T) {
	setupTestEnvironment(t)

	if _, err := executeCommand(rootCmd, "config", "path"); err != nil {
		t.Fatalf("config path failed: %v", err)
	}
}
