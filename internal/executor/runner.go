package executor

import (
	"context"
	"fmt"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/fixer"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/logging"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
)

// stepOutcome is one step's settlement, reported to the scheduler over
// the settle channel. Workers operate on local copies of the node's
// mutable fields and never write graph state themselves; the scheduler
// applies the outcome, so all node reads and writes stay confined to its
// goroutine.
type stepOutcome struct {
	step    int
	status  NodeStatus // StatusCompleted or StatusFailed
	agent   string
	task    string
	retries int
	result  *plan.AgentResult
	summary string
}

// runStep executes one step end-to-end: the attempt loop with retry,
// the coding-agent failover, fixer consultation, and summarization of the
// final result. It reads only fields that are stable for the node's
// lifetime (the step, the dispatch-time agent and task, the dependency
// set) and returns the terminal outcome instead of mutating the node.
func (e *DAGExecutor) runStep(ctx context.Context, g *Graph, node *Node, userID, originalContext string, emit func(Event)) stepOutcome {
	log := e.logger.WithStep(node.Step.Number)
	maxAttempts := e.cfg.MaxRetries + 1

	agentName := node.Agent
	taskText := node.Task
	retries := 0

	var lastResult *plan.AgentResult
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// The lock is re-applied on every attempt so fixer switches and
		// failover can never move a coding step off the pinned agent.
		agentName = e.lockedAgent(agentName, log)

		task := plan.AgentTask{
			Agent:   agentName,
			Task:    taskText,
			Context: e.assembleContext(g, node, originalContext),
		}

		log.Debug("dispatching attempt", "attempt", attempt, "agent", task.Agent)
		result, err := e.execute(ctx, userID, task)

		if err == nil && result.Success {
			return stepOutcome{
				step:    node.Step.Number,
				status:  StatusCompleted,
				agent:   agentName,
				task:    taskText,
				retries: retries,
				result:  &result,
				summary: e.summarizeResult(ctx, node.Step, agentName, result.Result),
			}
		}

		retries++

		var failureText string
		if err != nil {
			lastErr = err
			lastResult = nil
			failureText = err.Error()
		} else {
			lastErr = nil
			lastResult = &result
			failureText = result.Result
		}
		log.Warn("attempt failed", "attempt", attempt, "agent", task.Agent, "failure", failureText)

		if ctx.Err() != nil {
			return e.failedOutcome(node, agentName, taskText, retries, lastResult, ctx.Err())
		}

		if attempt >= maxAttempts {
			break
		}

		// First failure on an unlocked coding capability with a configured
		// partner: silently swap agents and retry without consulting the
		// fixer. A retry event is still emitted describing the failover.
		if retries == 1 && e.cfg.LockedCodingAgent == "" && e.roster.IsCoding(agentName) {
			if partner, ok := e.roster.FailoverPartner(agentName); ok {
				previous := agentName
				agentName = partner
				log.Info("coding agent failover", "from", previous, "to", partner)
				emit(Event{
					Type:    EventStepRetrying,
					Step:    node.Step.Number,
					Agent:   partner,
					Attempt: attempt + 1,
					Message: fmt.Sprintf("Switching from %s to %s after first failure", previous, partner),
				})
				continue
			}
		}

		suggestion := e.fixer.Suggest(ctx, taskText, agentName, failureText, attempt)
		emit(Event{
			Type:       EventStepRetrying,
			Step:       node.Step.Number,
			Agent:      agentName,
			Attempt:    attempt + 1,
			Message:    suggestion.Reasoning,
			Suggestion: &suggestion,
		})

		switch suggestion.Action {
		case fixer.ActionAbort:
			log.Info("fixer aborted step", "reason", suggestion.Reasoning)
			return e.failedOutcome(node, agentName, taskText, retries, lastResult, lastErr)

		case fixer.ActionModifyTask:
			taskText = suggestion.Task

		case fixer.ActionSwitchAgent:
			if e.cfg.LockedCodingAgent != "" &&
				e.roster.IsCoding(suggestion.Agent) &&
				suggestion.Agent != e.cfg.LockedCodingAgent {
				log.Info("ignoring switch suggestion, coding agent is locked",
					"suggested", suggestion.Agent, "locked", e.cfg.LockedCodingAgent)
			} else {
				agentName = suggestion.Agent
			}

		case fixer.ActionRetrySame:
			// Loop unchanged.
		}
	}

	return e.failedOutcome(node, agentName, taskText, retries, lastResult, lastErr)
}

// lockedAgent returns the locked coding agent when a lock is configured
// and the given capability is a coding capability, otherwise the
// capability unchanged.
func (e *DAGExecutor) lockedAgent(agentName string, log *logging.Logger) string {
	lock := e.cfg.LockedCodingAgent
	if lock == "" || !e.roster.IsCoding(agentName) || agentName == lock {
		return agentName
	}
	log.Debug("applying coding agent lock", "from", agentName, "to", lock)
	return lock
}

// failedOutcome builds a failed settlement using the last AgentResult, or
// a synthetic zero-duration result built from the error when the failure
// was a returned error rather than an unsuccessful result.
func (e *DAGExecutor) failedOutcome(node *Node, agentName, taskText string, retries int, lastResult *plan.AgentResult, lastErr error) stepOutcome {
	result := lastResult
	if result == nil {
		message := "step failed"
		if lastErr != nil {
			message = lastErr.Error()
		}
		result = &plan.AgentResult{
			AgentName: agentName,
			Success:   false,
			Result:    message,
			Duration:  0,
		}
	}
	return stepOutcome{
		step:    node.Step.Number,
		status:  StatusFailed,
		agent:   agentName,
		task:    taskText,
		retries: retries,
		result:  result,
	}
}
