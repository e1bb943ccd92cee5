// Package executor implements the dependency-graph task scheduler that
// executes a multi-step agent plan with bounded concurrency, automatic
// retry and repair, and cascading failure propagation.
//
// The executor is agent-agnostic: the actual worker dispatch, the
// summarizer, and the fixer's fast-model completion are all injected, so
// the scheduling core can be driven by stub dispatchers in tests.
//
// A run is observed through a finite, non-restartable event stream. The
// channel returned by ExecuteStream delivers step lifecycle events,
// parallel-status snapshots, and exactly one terminal done event, after
// which the channel is closed. Consumers must drain the stream to observe
// the final result; there is no separate polling API.
package executor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/agent"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/errors"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/fixer"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/logging"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
)

// ExecuteAgentFunc is the injected worker dispatch: it executes one
// AgentTask for the given user and returns the outcome. A failed dispatch
// may be reported either as an unsuccessful AgentResult or as an error;
// both drive the attempt loop.
type ExecuteAgentFunc func(ctx context.Context, userID string, task plan.AgentTask) (plan.AgentResult, error)

// SummarizeFunc is the injected summarizer used to compress long step
// outputs before they are exposed to dependents.
type SummarizeFunc func(ctx context.Context, agentName, text, originalTask string) (string, error)

// DAGExecutor executes plans as dependency graphs.
// One DAGExecutor may execute any number of runs, one at a time per call;
// runs share no state.
type DAGExecutor struct {
	cfg       Config
	roster    *agent.Roster
	execute   ExecuteAgentFunc
	summarize SummarizeFunc
	fixer     *fixer.Fixer
	logger    *logging.Logger
}

// New creates a DAGExecutor.
//
// The execute function is required. A nil fixer is replaced with one that
// always recommends a plain retry; a nil summarizer disables summarization
// (long results are clipped instead). Zero config fields fall back to
// DefaultConfig values.
func New(cfg Config, roster *agent.Roster, execute ExecuteAgentFunc, summarize SummarizeFunc, fx *fixer.Fixer, logger *logging.Logger) (*DAGExecutor, error) {
	if execute == nil {
		return nil, errors.NewValidationError("execute", "", "execute function is required")
	}
	if roster == nil {
		roster = agent.DefaultRoster()
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	if fx == nil {
		fx = fixer.New(nil, roster, logger)
	}

	defaults := DefaultConfig()
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaults.MaxConcurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.LockedCodingAgent != "" && !roster.Known(cfg.LockedCodingAgent) {
		return nil, errors.NewValidationError("locked_coding_agent", cfg.LockedCodingAgent,
			"locked coding agent is not in the roster")
	}

	return &DAGExecutor{
		cfg:       cfg,
		roster:    roster,
		execute:   execute,
		summarize: summarize,
		fixer:     fx,
		logger:    logger,
	}, nil
}

// ExecuteStream builds the dependency graph for the given steps and begins
// executing it, returning the run's event stream.
//
// Graph construction errors (cycles, invalid references) are returned
// synchronously before any step is dispatched. Every later failure is
// converted into node state and reported through the stream, never as an
// error: the terminal done event's success flag is the authoritative run
// outcome.
func (e *DAGExecutor) ExecuteStream(ctx context.Context, steps []plan.Step, userID, originalContext string) (<-chan Event, error) {
	graph, err := BuildGraph(steps)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	out := make(chan Event, 64)

	go e.run(ctx, graph, runID, userID, originalContext, out)

	return out, nil
}

// run is the scheduler loop. It launches ready steps up to the concurrency
// cap, waits for whichever in-flight step settles first, unlocks dependents
// of completed steps, cascades failures to dependents as skips, and emits
// exactly one done event before closing the stream.
func (e *DAGExecutor) run(ctx context.Context, g *Graph, runID, userID, originalContext string, out chan<- Event) {
	defer close(out)

	log := e.logger.WithRun(runID)

	emit := func(ev Event) {
		ev.RunID = runID
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		out <- ev
	}

	total := len(g.Nodes)
	emit(Event{
		Type: EventStatus,
		Message: fmt.Sprintf("Executing %d steps with concurrency %d",
			total, e.cfg.MaxConcurrency),
	})
	log.Info("run started", "steps", total, "max_concurrency", e.cfg.MaxConcurrency)

	settleCh := make(chan stepOutcome)
	running := make(map[int]string) // step number -> dispatch-time agent

	for {
		// Launch ready steps while concurrency slots are free. Once the
		// context is canceled nothing new starts; in-flight steps drain.
		if ctx.Err() == nil {
			for _, num := range g.ReadyNodes() {
				if len(running) >= e.cfg.MaxConcurrency {
					break
				}
				node := g.Nodes[num]
				node.Status = StatusRunning
				running[num] = node.Agent
				emit(Event{
					Type:  EventStepStarted,
					Step:  num,
					Agent: node.Agent,
				})
				go func(n *Node) {
					settleCh <- e.runStep(ctx, g, n, userID, originalContext, emit)
				}(node)
			}
		}

		if len(running) == 0 {
			break
		}

		// Wait for whichever in-flight step settles first. Completion
		// order is arrival order, not start order. The worker reported its
		// outcome without touching the graph; apply it here so every node
		// mutation happens on this goroutine.
		outcome := <-settleCh
		num := outcome.step
		delete(running, num)
		node := g.Nodes[num]
		node.Status = outcome.status
		node.Agent = outcome.agent
		node.Task = outcome.task
		node.Retries = outcome.retries
		node.Result = outcome.result
		node.Summary = outcome.summary

		switch node.Status {
		case StatusCompleted:
			log.Info("step completed", "step", num, "agent", node.Result.AgentName,
				"duration", node.Result.Duration)
			emit(Event{
				Type:   EventStepCompleted,
				Step:   num,
				Agent:  node.Result.AgentName,
				Result: node.Result,
			})
			g.UnlockDependents(num)

		case StatusFailed:
			log.Warn("step failed", "step", num, "agent", node.Agent,
				"failure", node.Result.Result)
			emit(Event{
				Type:   EventStepFailed,
				Step:   num,
				Agent:  node.Agent,
				Result: node.Result,
			})
			e.cascadeSkip(g, num, emit)
		}

		emit(e.parallelStatus(g, running, total))
	}

	// A canceled run leaves unstarted nodes behind; settle them so the
	// terminal accounting covers the full node set.
	if ctx.Err() != nil {
		e.skipRemaining(g, emit)
	}

	emit(e.buildDone(g, total))
	log.Info("run finished")
}

// cascadeSkip marks the entire transitive dependent closure of a failed
// step as skipped, emitting one step_skipped event per node. The failed
// step itself already emitted step_failed.
func (e *DAGExecutor) cascadeSkip(g *Graph, failed int, emit func(Event)) {
	for _, num := range g.TransitiveDependents(failed) {
		node := g.Nodes[num]
		if node.Status == StatusCompleted || node.Status == StatusSkipped {
			continue
		}
		node.Status = StatusSkipped
		node.Result = &plan.AgentResult{
			AgentName: node.Agent,
			Success:   false,
			Result:    fmt.Sprintf("Skipped: Dependency step %d failed", failed),
			Duration:  0,
		}
		emit(Event{
			Type:    EventStepSkipped,
			Step:    num,
			Agent:   node.Agent,
			Message: node.Result.Result,
			Result:  node.Result,
		})
	}
}

// skipRemaining settles every still-pending or ready node after a
// canceled run.
func (e *DAGExecutor) skipRemaining(g *Graph, emit func(Event)) {
	nums := make([]int, 0, len(g.Nodes))
	for num := range g.Nodes {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	for _, num := range nums {
		node := g.Nodes[num]
		if node.Status.IsTerminal() || node.Status == StatusRunning {
			continue
		}
		node.Status = StatusSkipped
		node.Result = &plan.AgentResult{
			AgentName: node.Agent,
			Success:   false,
			Result:    "Skipped: run canceled",
			Duration:  0,
		}
		emit(Event{
			Type:    EventStepSkipped,
			Step:    num,
			Agent:   node.Agent,
			Message: node.Result.Result,
			Result:  node.Result,
		})
	}
}

// parallelStatus builds a snapshot event of currently-running agents and
// overall progress.
func (e *DAGExecutor) parallelStatus(g *Graph, running map[int]string, total int) Event {
	nums := make([]int, 0, len(running))
	for num := range running {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	agents := make([]string, 0, len(nums))
	for _, num := range nums {
		agents = append(agents, running[num])
	}

	counts := g.CountByStatus()
	return Event{
		Type:     EventParallelStatus,
		Running:  agents,
		Finished: counts[StatusCompleted] + counts[StatusSkipped],
		Total:    total,
	}
}

// buildDone computes the terminal event: the completed-step results map,
// the success flag, and, when unsuccessful, an error string counting
// failed-or-skipped steps.
func (e *DAGExecutor) buildDone(g *Graph, total int) Event {
	results := make(map[int]plan.AgentResult)
	unsuccessful := 0
	for num, node := range g.Nodes {
		switch node.Status {
		case StatusCompleted:
			results[num] = *node.Result
		default:
			unsuccessful++
		}
	}

	done := Event{
		Type:    EventDone,
		Results: results,
		Success: unsuccessful == 0,
	}
	if unsuccessful > 0 {
		done.Error = fmt.Sprintf("%d of %d steps failed or were skipped", unsuccessful, total)
	}
	return done
}

// Collect drains an event stream to completion and returns the terminal
// done event. It is a convenience for callers that only need the final
// outcome.
func Collect(events <-chan Event) Event {
	var done Event
	for ev := range events {
		if ev.Type == EventDone {
			done = ev
		}
	}
	return done
}
