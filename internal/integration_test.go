// Package internal contains integration tests that verify the packages
// work together correctly. These tests ensure the executor event stream
// and event bus communication work as expected.
package internal

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/event"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/executor"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
)

// TestEventBusIntegration tests that the event bus correctly routes events
// between components, simulating CLI-executor communication.
func TestEventBusIntegration(t *testing.T) {
	bus := event.NewBus()

	var receivedEvents []event.Event
	var mu sync.Mutex

	record := func(e event.Event) {
		mu.Lock()
		receivedEvents = append(receivedEvents, e)
		mu.Unlock()
	}

	bus.Subscribe("run.started", record)
	bus.Subscribe("step.started", record)
	bus.Subscribe("step.retrying", record)
	bus.Subscribe("step.settled", record)
	bus.Subscribe("run.completed", record)

	// Simulate the lifecycle of a two step run with one retry
	bus.Publish(event.NewRunStartedEvent("run-1", 2))
	bus.Publish(event.NewStepStartedEvent(1, "researcher"))
	bus.Publish(event.NewStepRetryingEvent(1, "researcher", 2, "command exited 1"))
	bus.Publish(event.NewStepSettledEvent(1, "researcher", "completed", "findings"))
	bus.Publish(event.NewStepStartedEvent(2, "writer"))
	bus.Publish(event.NewStepSettledEvent(2, "writer", "completed", "report"))
	bus.Publish(event.NewRunCompletedEvent("run-1", true, ""))

	mu.Lock()
	defer mu.Unlock()

	expectedTypes := []string{
		"run.started",
		"step.started",
		"step.retrying",
		"step.settled",
		"step.started",
		"step.settled",
		"run.completed",
	}

	if len(receivedEvents) != len(expectedTypes) {
		t.Fatalf("Expected %d events, got %d", len(expectedTypes), len(receivedEvents))
	}

	for i, expected := range expectedTypes {
		if receivedEvents[i].EventType() != expected {
			t.Errorf("Event %d: expected type %q, got %q", i, expected, receivedEvents[i].EventType())
		}
	}
}

// TestEventBusConcurrentPublish tests that the event bus handles concurrent
// publishing from multiple goroutines safely.
func TestEventBusConcurrentPublish(t *testing.T) {
	bus := event.NewBus()

	var receivedCount int
	var mu sync.Mutex

	bus.SubscribeAll(func(e event.Event) {
		mu.Lock()
		receivedCount++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	publishCount := 100

	// Simulate multiple running steps settling concurrently
	for i := 0; i < publishCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			bus.Publish(event.NewStepSettledEvent(id, "analyst", "completed", "done"))
		}(i)
	}

	wg.Wait()

	mu.Lock()
	count := receivedCount
	mu.Unlock()

	if count != publishCount {
		t.Errorf("Expected %d events, got %d", publishCount, count)
	}
}

// TestExecutorEventBridge runs a parsed plan through the executor and
// republishes its stream on the event bus, the way the CLI's plain
// printer does.
func TestExecutorEventBridge(t *testing.T) {
	doc, err := plan.ParseJSON([]byte(`{
		"context": "integration brief",
		"steps": [
			{"step": 1, "agent": "researcher", "task": "gather"},
			{"step": 2, "agent": "writer", "task": "write", "depends_on": [1]}
		]
	}`))
	if err != nil {
		t.Fatalf("Failed to parse plan: %v", err)
	}

	execute := func(ctx context.Context, userID string, task plan.AgentTask) (plan.AgentResult, error) {
		return plan.AgentResult{
			AgentName: task.Agent,
			Success:   true,
			Result:    fmt.Sprintf("output from %s", task.Agent),
		}, nil
	}

	exec, err := executor.New(executor.DefaultConfig(), nil, execute, nil, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create executor: %v", err)
	}

	events, err := exec.ExecuteStream(context.Background(), doc.Steps, "user-1", doc.Context)
	if err != nil {
		t.Fatalf("Failed to start run: %v", err)
	}

	bus := event.NewBus()

	var settled []string
	var completed *event.RunCompletedEvent
	bus.Subscribe("step.settled", func(e event.Event) {
		settled = append(settled, e.(event.StepSettledEvent).Status)
	})
	bus.Subscribe("run.completed", func(e event.Event) {
		ev := e.(event.RunCompletedEvent)
		completed = &ev
	})

	for ev := range events {
		switch ev.Type {
		case executor.EventStepCompleted:
			bus.Publish(event.NewStepSettledEvent(ev.Step, ev.Agent, "completed", ""))
		case executor.EventStepFailed:
			bus.Publish(event.NewStepSettledEvent(ev.Step, ev.Agent, "failed", ""))
		case executor.EventStepSkipped:
			bus.Publish(event.NewStepSettledEvent(ev.Step, ev.Agent, "skipped", ""))
		case executor.EventDone:
			bus.Publish(event.NewRunCompletedEvent(ev.RunID, ev.Success, ev.Error))
		}
	}

	if len(settled) != 2 {
		t.Fatalf("Expected 2 settled steps, got %d", len(settled))
	}
	for i, status := range settled {
		if status != "completed" {
			t.Errorf("Step %d: expected status completed, got %q", i+1, status)
		}
	}
	if completed == nil {
		t.Fatal("Expected a run.completed event")
	}
	if !completed.Success {
		t.Errorf("Expected a successful run, got error %q", completed.Error)
	}
}
