package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/util"
)

// assembleContext builds the textual input for a step from its
// dependencies' outputs.
//
// Root steps (and only root steps) are given the run's original
// orchestration context. Each dependency contributes one block labeled
// with the producing agent's name: the cached summary when present,
// otherwise the raw result clipped to rawContextLimit runes. Dependencies
// are ordered by step number so the assembled context is deterministic.
func (e *DAGExecutor) assembleContext(g *Graph, node *Node, originalContext string) string {
	var parts []string

	if len(node.DependsOn) == 0 && originalContext != "" {
		parts = append(parts, originalContext)
	}

	deps := make([]int, 0, len(node.DependsOn))
	for dep := range node.DependsOn {
		deps = append(deps, dep)
	}
	sort.Ints(deps)

	for _, dep := range deps {
		depNode := g.Nodes[dep]
		if depNode == nil || depNode.Result == nil {
			continue
		}
		text := depNode.Summary
		if text == "" {
			text = util.Clip(depNode.Result.Result, rawContextLimit)
		}
		parts = append(parts, fmt.Sprintf("[%s, step %d]:\n%s", depNode.Result.AgentName, dep, text))
	}

	return strings.Join(parts, "\n\n")
}

// summarizeResult computes the cached summary for a completed step.
//
// Results longer than summaryThreshold runes are summarized when
// summarization is enabled; if the summarizer fails or returns nothing,
// the result is clipped to summaryThreshold runes instead. Shorter results
// are cached verbatim. Only this summary, never the full result text, is
// exposed to dependents, bounding context growth with graph depth.
func (e *DAGExecutor) summarizeResult(ctx context.Context, step plan.Step, agentName, text string) string {
	if len([]rune(text)) <= summaryThreshold {
		return text
	}
	if !e.cfg.SummarizeResults || e.summarize == nil {
		return util.Clip(text, summaryThreshold)
	}

	summary, err := e.summarize(ctx, agentName, text, step.Task)
	if err != nil || strings.TrimSpace(summary) == "" {
		e.logger.Warn("summarization failed, clipping result",
			"step", step.Number, "error", err)
		return util.Clip(text, summaryThreshold)
	}
	return summary
}
