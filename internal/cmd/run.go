package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/agent"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/config"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/event"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/executor"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/fixer"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/logging"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/tui"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/tui/styles"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/util"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var runCmd = &cobra.Command{
	Use:   "run <plan-file>",
	Short: "Execute a plan file",
	Long: `Execute a multi-step plan from a JSON or YAML file.

Independent steps run concurrently up to the configured limit. Failed
steps are retried with repair guidance; steps whose dependencies failed
are skipped.

Examples:
  # Run a plan with the configured defaults
  luna run plan.yaml

  # Cap concurrency and pin coding steps to one agent
  luna run plan.json --concurrency 2 --lock coder-codex

  # Run without the live progress display
  luna run plan.yaml --no-tui`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runConcurrency int
	runMaxRetries  int
	runLock        string
	runUser        string
	runContext     string
	runNoTUI       bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "maximum steps running at once (overrides config)")
	runCmd.Flags().IntVar(&runMaxRetries, "max-retries", -1, "retry attempts per step after the initial attempt (overrides config)")
	runCmd.Flags().StringVar(&runLock, "lock", "", "pin every coding step to this capability for the whole run")
	runCmd.Flags().StringVar(&runUser, "user", "", "user identifier passed through to agent commands")
	runCmd.Flags().StringVar(&runContext, "context", "", "brief given to root steps (overrides the plan's context)")
	runCmd.Flags().BoolVar(&runNoTUI, "no-tui", false, "print plain progress lines instead of the live display")
}

func runRun(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	applyRunFlags(cmd, cfg)

	doc, err := plan.ParseFile(args[0])
	if err != nil {
		return err
	}
	if result := plan.ValidateSteps(doc.Steps); !result.IsValid {
		printValidation(cmd.OutOrStdout(), args[0], result)
		return fmt.Errorf("plan has %d validation error(s)", result.ErrorCount)
	}

	roster, err := agent.NewRoster(agent.RosterConfig{
		Capabilities:   cfg.Roster.Capabilities,
		CodingPatterns: cfg.Roster.CodingPatterns,
		FailoverPairs:  cfg.Roster.FailoverPairs,
		LockedAgent:    cfg.Executor.LockedCodingAgent,
	})
	if err != nil {
		return fmt.Errorf("invalid roster: %w", err)
	}

	logger, err := buildLogger(cfg, cwd)
	if err != nil {
		return err
	}
	defer logger.Close()

	dispatcher := agent.NewCommandDispatcher(cfg.Agents.Commands, cfg.Agents.Fallback)
	fx := buildFixer(cfg, roster, logger)

	exec, err := executor.New(executor.Config{
		MaxConcurrency:    cfg.Executor.MaxConcurrency,
		MaxRetries:        cfg.Executor.MaxRetries,
		SummarizeResults:  cfg.Executor.SummarizeResults,
		SummaryModel:      cfg.Executor.SummaryModel,
		LockedCodingAgent: cfg.Executor.LockedCodingAgent,
	}, roster, dispatcher.Execute, buildSummarizer(cfg), fx, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	brief := doc.Context
	if runContext != "" {
		brief = runContext
	}

	events, err := exec.ExecuteStream(ctx, doc.Steps, runUser, brief)
	if err != nil {
		return err
	}

	var done *executor.Event
	if useTUI(cfg) {
		done, err = tui.Run(events, cfg.TUI.MaxEventLines)
		if err != nil {
			return fmt.Errorf("progress display error: %w", err)
		}
		if done == nil {
			// The user quit before the run finished. Cancel the run and
			// drain the stream so the scheduler settles in-flight steps
			// and closes it instead of blocking on an abandoned channel.
			final := cancelAndDrain(stop, events)
			done = &final
		}
	} else {
		final := printRunEvents(events, len(doc.Steps), cmd.OutOrStdout())
		done = &final
	}

	if done.Type != executor.EventDone {
		return fmt.Errorf("run ended without a terminal event")
	}
	if !done.Success {
		return fmt.Errorf("run %s failed: %s", done.RunID, done.Error)
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.Secondary.Render(fmt.Sprintf("Run %s completed: %d steps", done.RunID, len(done.Results))))
	return nil
}

// applyRunFlags overrides loaded configuration with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("concurrency") {
		cfg.Executor.MaxConcurrency = runConcurrency
	}
	if cmd.Flags().Changed("max-retries") {
		cfg.Executor.MaxRetries = runMaxRetries
	}
	if cmd.Flags().Changed("lock") {
		cfg.Executor.LockedCodingAgent = runLock
	}
	if cmd.Flags().Changed("no-tui") && runNoTUI {
		cfg.TUI.Enabled = false
	}
}

func buildLogger(cfg *config.Config, cwd string) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLogger(cfg.Paths.ResolveRunDir(cwd), cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create run logger: %w", err)
	}
	return logger, nil
}

func buildFixer(cfg *config.Config, roster *agent.Roster, logger *logging.Logger) *fixer.Fixer {
	var complete fixer.CompletionFunc
	if cfg.Agents.FixerCommand != "" {
		complete = agent.CommandCompletion(cfg.Agents.FixerCommand)
	}
	return fixer.New(complete, roster, logger)
}

// buildSummarizer returns the summarization function backing long result
// condensation, or nil when no summary command is configured.
func buildSummarizer(cfg *config.Config) executor.SummarizeFunc {
	if cfg.Agents.SummaryCommand == "" {
		return nil
	}
	complete := agent.CommandCompletion(cfg.Agents.SummaryCommand)
	return func(ctx context.Context, agentName, text, originalTask string) (string, error) {
		var prompt strings.Builder
		prompt.WriteString("Condense the following agent output into at most 500 characters. ")
		prompt.WriteString("Keep concrete findings, decisions, and anything a dependent step would need.\n\n")
		fmt.Fprintf(&prompt, "Agent: %s\n", agentName)
		fmt.Fprintf(&prompt, "Task: %s\n\n", originalTask)
		prompt.WriteString("Output:\n")
		prompt.WriteString(text)
		return complete(ctx, prompt.String())
	}
}

// cancelAndDrain cancels the run and drains its event stream to the
// terminal event, so the scheduler can settle remaining steps and close
// the channel.
func cancelAndDrain(cancel context.CancelFunc, events <-chan executor.Event) executor.Event {
	cancel()
	return executor.Collect(events)
}

// useTUI reports whether the live progress display should be used.
// The plain printer is used when disabled or when stdout is not a terminal.
func useTUI(cfg *config.Config) bool {
	return cfg.TUI.Enabled && term.IsTerminal(int(os.Stdout.Fd()))
}

// printRunEvents consumes the executor stream in plain mode. Executor
// events are republished on an event bus so the printer observes the same
// lifecycle events other subscribers would; the terminal done event is
// returned.
func printRunEvents(events <-chan executor.Event, totalSteps int, out io.Writer) executor.Event {
	bus := event.NewBus()
	bus.SubscribeAll(func(ev event.Event) {
		printEvent(out, ev)
	})

	var done executor.Event
	started := false
	for ev := range events {
		if !started && ev.RunID != "" {
			bus.Publish(event.NewRunStartedEvent(ev.RunID, totalSteps))
			started = true
		}
		switch ev.Type {
		case executor.EventStepStarted:
			bus.Publish(event.NewStepStartedEvent(ev.Step, ev.Agent))
		case executor.EventStepCompleted:
			bus.Publish(event.NewStepSettledEvent(ev.Step, ev.Agent, "completed", resultSummary(ev)))
		case executor.EventStepFailed:
			bus.Publish(event.NewStepSettledEvent(ev.Step, ev.Agent, "failed", resultSummary(ev)))
		case executor.EventStepSkipped:
			bus.Publish(event.NewStepSettledEvent(ev.Step, ev.Agent, "skipped", resultSummary(ev)))
		case executor.EventStepRetrying:
			bus.Publish(event.NewStepRetryingEvent(ev.Step, ev.Agent, ev.Attempt, ev.Message))
		case executor.EventDone:
			done = ev
			bus.Publish(event.NewRunCompletedEvent(ev.RunID, ev.Success, ev.Error))
		}
	}
	return done
}

func printEvent(out io.Writer, ev event.Event) {
	switch e := ev.(type) {
	case event.RunStartedEvent:
		fmt.Fprintf(out, "%s run %s: %d steps\n", styles.Primary.Render("started"), e.RunID, e.TotalSteps)
	case event.StepStartedEvent:
		fmt.Fprintf(out, "  %s step %d (%s)\n", styles.Muted.Render("running"), e.Step, e.Agent)
	case event.StepRetryingEvent:
		fmt.Fprintf(out, "  %s step %d (%s) attempt %d: %s\n", styles.Warning.Render("retrying"), e.Step, e.Agent, e.Attempt, e.Reason)
	case event.StepSettledEvent:
		label := settledLabel(e.Status)
		if e.Summary != "" {
			fmt.Fprintf(out, "  %s step %d (%s): %s\n", label, e.Step, e.Agent, e.Summary)
		} else {
			fmt.Fprintf(out, "  %s step %d (%s)\n", label, e.Step, e.Agent)
		}
	case event.RunCompletedEvent:
		if e.Success {
			fmt.Fprintf(out, "%s run %s\n", styles.Secondary.Render("completed"), e.RunID)
		} else {
			fmt.Fprintf(out, "%s run %s: %s\n", styles.Error.Render("failed"), e.RunID, e.Error)
		}
	}
}

func settledLabel(status string) string {
	switch status {
	case "completed":
		return styles.Secondary.Render("completed")
	case "failed":
		return styles.Error.Render("failed")
	default:
		return styles.Warning.Render("skipped")
	}
}

// resultSummary returns the first line of a settled step's result text.
func resultSummary(ev executor.Event) string {
	if ev.Result == nil {
		return ""
	}
	return util.FirstLine(ev.Result.Result)
}
