package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/tui/styles"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <plan-file>",
	Short: "Validate a plan file without running it",
	Long: `Parse a plan file and report structural problems: duplicate or
missing step numbers, empty agents or tasks, unknown dependencies, and
dependency cycles.

Examples:
  # Validate once and exit
  luna validate plan.yaml

  # Re-validate every time the file is saved
  luna validate plan.yaml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

var validateWatch bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVarP(&validateWatch, "watch", "w", false, "re-validate whenever the file changes")
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	out := cmd.OutOrStdout()

	err := validateOnce(out, path)
	if !validateWatch {
		return err
	}
	return watchAndValidate(out, path)
}

// validateOnce parses and validates the plan file, printing every message.
// It returns an error when the plan fails to parse or has validation errors.
func validateOnce(out io.Writer, path string) error {
	doc, err := plan.ParseFile(path)
	if err != nil {
		fmt.Fprintf(out, "%s %s: %v\n", styles.Error.Render("error"), path, err)
		return err
	}

	result := plan.ValidateSteps(doc.Steps)
	printValidation(out, path, result)
	if !result.IsValid {
		return fmt.Errorf("plan has %d validation error(s)", result.ErrorCount)
	}
	return nil
}

func printValidation(out io.Writer, path string, result *plan.ValidationResult) {
	for _, msg := range result.Messages {
		label := styles.Warning.Render("warning")
		if msg.IsError() {
			label = styles.Error.Render("error")
		}
		if msg.Step > 0 {
			fmt.Fprintf(out, "%s step %d: %s\n", label, msg.Step, msg.Message)
		} else {
			fmt.Fprintf(out, "%s %s\n", label, msg.Message)
		}
		if msg.Suggestion != "" {
			fmt.Fprintf(out, "  %s\n", styles.Muted.Render(msg.Suggestion))
		}
	}

	if result.IsValid {
		fmt.Fprintf(out, "%s %s (%d warning(s))\n", styles.Secondary.Render("valid"), path, result.WarningCount)
	} else {
		fmt.Fprintf(out, "%s %s (%d error(s), %d warning(s))\n", styles.Error.Render("invalid"), path, result.ErrorCount, result.WarningCount)
	}
}

// watchAndValidate re-runs validation whenever the plan file is written.
// The file's directory is watched rather than the file itself because many
// editors save by renaming a temporary file over the original.
func watchAndValidate(out io.Writer, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "%s\n", styles.Muted.Render("watching for changes (ctrl-c to stop)"))

	// Debounce events - many editors create multiple events for a single save
	debounce := time.NewTimer(0)
	<-debounce.C
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			debounce.Reset(100 * time.Millisecond)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			_ = validateOnce(out, path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "%s %v\n", styles.Error.Render("watch error:"), err)
		}
	}
}
