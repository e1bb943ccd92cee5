// Package tui implements the live progress display for plan runs. It
// renders the executor's event stream as a compact dashboard: overall
// progress, currently-running agents, and a scrolling tail of recent
// events.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/executor"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/tui/styles"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/util"
)

// defaultMaxEventLines bounds the event tail when no limit is configured.
const defaultMaxEventLines = 12

// eventMsg wraps one executor event for the bubbletea update loop.
type eventMsg executor.Event

// streamClosedMsg signals that the executor closed the event stream.
type streamClosedMsg struct{}

// Model is the bubbletea model for a single plan run.
type Model struct {
	events <-chan executor.Event

	width    int
	maxLines int

	runID    string
	total    int
	finished int
	running  []string
	lines    []string
	canceled bool

	done *executor.Event
}

// New creates a progress model consuming the given event stream.
// maxLines bounds the event tail; zero or negative selects the default.
func New(events <-chan executor.Event, maxLines int) Model {
	if maxLines <= 0 {
		maxLines = defaultMaxEventLines
	}
	return Model{
		events:   events,
		width:    80,
		maxLines: maxLines,
	}
}

// Done returns the terminal event observed by the model, or nil when the
// run has not finished. Callers read it after the program exits.
func (m Model) Done() *executor.Event {
	return m.done
}

// Init starts waiting for the first executor event.
func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// waitForEvent blocks on the event stream and converts the next event
// into a message. A closed stream ends the program.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update handles terminal and executor messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// Quitting the display stops the run: when no terminal event
			// was observed, the caller cancels the run context and drains
			// the stream so the scheduler can settle and close it.
			m.canceled = true
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		m = m.apply(executor.Event(msg))
		if m.done != nil {
			return m, tea.Quit
		}
		return m, m.waitForEvent()

	case streamClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one executor event into the display state.
func (m Model) apply(ev executor.Event) Model {
	if m.runID == "" {
		m.runID = ev.RunID
	}

	switch ev.Type {
	case executor.EventParallelStatus:
		m.running = ev.Running
		m.finished = ev.Finished
		m.total = ev.Total
		return m

	case executor.EventDone:
		done := ev
		m.done = &done
		return m

	case executor.EventStatus:
		m.lines = m.appendLine(styles.Muted.Render(ev.Message))
		return m
	}

	m.lines = m.appendLine(formatStepLine(ev))
	return m
}

func (m Model) appendLine(line string) []string {
	lines := append(m.lines, line)
	if len(lines) > m.maxLines {
		lines = lines[len(lines)-m.maxLines:]
	}
	return lines
}

// formatStepLine renders a one-line description of a step event.
func formatStepLine(ev executor.Event) string {
	label := lipgloss.NewStyle().Foreground(statusColor(ev.Type)).Render(statusWord(ev.Type))
	head := fmt.Sprintf("%s step %d [%s]", label, ev.Step, ev.Agent)

	detail := ""
	switch ev.Type {
	case executor.EventStepRetrying:
		detail = fmt.Sprintf("attempt %d: %s", ev.Attempt, ev.Message)
	case executor.EventStepCompleted:
		if ev.Result != nil {
			detail = util.FirstLine(ev.Result.Result)
		}
	case executor.EventStepFailed, executor.EventStepSkipped:
		if ev.Result != nil {
			detail = util.FirstLine(ev.Result.Result)
		}
	}

	if detail == "" {
		return head
	}
	return head + " " + styles.Muted.Render(detail)
}

func statusWord(t executor.EventType) string {
	switch t {
	case executor.EventStepStarted:
		return "▶ running"
	case executor.EventStepCompleted:
		return "✓ completed"
	case executor.EventStepFailed:
		return "✗ failed"
	case executor.EventStepRetrying:
		return "↻ retrying"
	case executor.EventStepSkipped:
		return "– skipped"
	default:
		return string(t)
	}
}

func statusColor(t executor.EventType) lipgloss.Color {
	switch t {
	case executor.EventStepStarted:
		return styles.StatusRunning
	case executor.EventStepCompleted:
		return styles.StatusCompleted
	case executor.EventStepFailed:
		return styles.StatusFailed
	case executor.EventStepRetrying:
		return styles.StatusRetrying
	case executor.EventStepSkipped:
		return styles.StatusSkipped
	default:
		return styles.StatusPending
	}
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	title := "luna run"
	if m.runID != "" {
		title = fmt.Sprintf("luna run %s", util.Clip(m.runID, 8))
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n")

	if m.total > 0 {
		b.WriteString(styles.Subtitle.Render(fmt.Sprintf("%d/%d steps finished", m.finished, m.total)))
		b.WriteString("\n")
	}

	if len(m.running) > 0 {
		b.WriteString(styles.Secondary.Render("running: " + strings.Join(m.running, ", ")))
		b.WriteString("\n")
	}

	if len(m.lines) > 0 {
		tail := make([]string, len(m.lines))
		for i, line := range m.lines {
			tail[i] = util.TruncateANSI(line, m.width-4)
		}
		b.WriteString(styles.ContentBox.Width(m.width - 2).Render(strings.Join(tail, "\n")))
		b.WriteString("\n")
	}

	if m.done != nil {
		if m.done.Success {
			b.WriteString(styles.Secondary.Render(fmt.Sprintf("✓ all %d steps completed", len(m.done.Results))))
		} else {
			b.WriteString(styles.Error.Render("✗ " + m.done.Error))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(styles.HelpBar.Render("[q] cancel"))
	}

	return b.String()
}

// Run drives the progress display until the run finishes or the user
// quits, and returns the terminal event when one was observed. A nil
// event means the user quit early; the caller is expected to cancel the
// run and drain the stream.
func Run(events <-chan executor.Event, maxLines int) (*executor.Event, error) {
	program := tea.NewProgram(New(events, maxLines))
	final, err := program.Run()
	if err != nil {
		return nil, err
	}
	model, ok := final.(Model)
	if !ok {
		return nil, fmt.Errorf("unexpected final model type %T", final)
	}
	return model.Done(), nil
}
