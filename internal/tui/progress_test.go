package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/executor"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
)

func applyEvent(t *testing.T, m Model, ev executor.Event) Model {
	t.Helper()
	updated, _ := m.Update(eventMsg(ev))
	model, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update() returned %T, want Model", updated)
	}
	return model
}

func TestModelTracksProgress(t *testing.T) {
	m := New(nil, 10)

	m = applyEvent(t, m, executor.Event{
		Type:  executor.EventStepStarted,
		RunID: "run-123",
		Step:  1,
		Agent: "researcher",
	})
	m = applyEvent(t, m, executor.Event{
		Type:     executor.EventParallelStatus,
		Running:  []string{"researcher", "analyst"},
		Finished: 1,
		Total:    4,
	})

	if m.runID != "run-123" {
		t.Errorf("runID = %q", m.runID)
	}
	if m.finished != 1 || m.total != 4 {
		t.Errorf("finished/total = %d/%d, want 1/4", m.finished, m.total)
	}

	view := m.View()
	for _, want := range []string{"1/4 steps finished", "researcher, analyst", "step 1"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestModelQuitsOnDone(t *testing.T) {
	m := New(nil, 10)

	updated, cmd := m.Update(eventMsg(executor.Event{
		Type:    executor.EventDone,
		Success: false,
		Error:   "2 of 4 steps failed or were skipped",
		Results: map[int]plan.AgentResult{1: {}, 2: {}},
	}))
	m = updated.(Model)

	if cmd == nil {
		t.Fatal("expected quit command after done event")
	}
	if m.Done() == nil {
		t.Fatal("Done() = nil after done event")
	}
	if m.Done().Success {
		t.Error("Done().Success = true, want false")
	}
	if !strings.Contains(m.View(), "2 of 4 steps failed") {
		t.Errorf("View() missing failure summary:\n%s", m.View())
	}
}

func TestModelQuitsOnClosedStream(t *testing.T) {
	m := New(nil, 10)
	_, cmd := m.Update(streamClosedMsg{})
	if cmd == nil {
		t.Fatal("expected quit command on closed stream")
	}
}

func TestModelQuitKey(t *testing.T) {
	m := New(nil, 10)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command for q")
	}
	if !updated.(Model).canceled {
		t.Error("model not marked canceled")
	}
}

func TestEventTailBounded(t *testing.T) {
	m := New(nil, 3)

	for i := 1; i <= 6; i++ {
		m = applyEvent(t, m, executor.Event{
			Type:  executor.EventStepStarted,
			Step:  i,
			Agent: "writer",
		})
	}

	if len(m.lines) != 3 {
		t.Fatalf("tail holds %d lines, want 3", len(m.lines))
	}
	view := m.View()
	if strings.Contains(view, "step 1") {
		t.Error("oldest line still visible past the tail bound")
	}
	if !strings.Contains(view, "step 6") {
		t.Error("newest line missing from the tail")
	}
}

func TestWindowResize(t *testing.T) {
	m := New(nil, 10)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if updated.(Model).width != 120 {
		t.Errorf("width = %d, want 120", updated.(Model).width)
	}
}

func TestRetryLineShowsAttempt(t *testing.T) {
	m := New(nil, 10)
	m = applyEvent(t, m, executor.Event{
		Type:    executor.EventStepRetrying,
		Step:    2,
		Agent:   "coder-codex",
		Attempt: 2,
		Message: "Switching from coder-claude to coder-codex after first failure",
	})

	view := m.View()
	for _, want := range []string{"attempt 2", "coder-codex"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}
