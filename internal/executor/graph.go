package executor

import (
	"fmt"
	"sort"

	"github.com/Bitwarelabscom/luna-orchestrator/internal/errors"
	"github.com/Bitwarelabscom/luna-orchestrator/internal/plan"
)

// NodeStatus represents the scheduling state of a single graph node.
//
// Statuses form a directed progression: pending -> ready -> running ->
// {completed | failed}. Skipped is reachable only from pending or ready,
// when a dependency fails; a node never transitions backward.
type NodeStatus int

const (
	// StatusPending indicates the node is waiting on dependencies.
	StatusPending NodeStatus = iota

	// StatusReady indicates all dependencies completed and the node may start.
	StatusReady

	// StatusRunning indicates the node is currently executing.
	StatusRunning

	// StatusCompleted indicates the node finished successfully.
	StatusCompleted

	// StatusFailed indicates the node exhausted its attempts or was aborted.
	StatusFailed

	// StatusSkipped indicates the node was abandoned because a dependency failed.
	StatusSkipped
)

// String returns a human-readable string for the status.
func (s NodeStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if this status represents a final state.
func (s NodeStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Node is the mutable scheduling wrapper around one plan step.
//
// Agent and Task start as copies of the step's values and may be rewritten
// by the agent lock, the coding failover, or fixer suggestions. All mutable
// fields are written exclusively by the scheduler goroutine: workers report
// their changes through the step outcome carried on the settle channel,
// and the scheduler applies them on settlement.
type Node struct {
	// Step is the immutable plan step this node wraps.
	Step plan.Step

	// Agent is the capability the next attempt will dispatch to.
	Agent string

	// Task is the instruction text the next attempt will carry.
	Task string

	// Status is the node's scheduling state.
	Status NodeStatus

	// Retries counts failed attempts so far.
	Retries int

	// Result is the node's final AgentResult once terminal.
	Result *plan.AgentResult

	// Summary is the cached summary of Result exposed to dependents'
	// context assembly. The full result text is never exposed downstream.
	Summary string

	// DependsOn is the set of step numbers this node waits on.
	DependsOn map[int]bool

	// Dependents is the set of step numbers waiting on this node.
	// This is exactly the inverse of the DependsOn relation.
	Dependents map[int]bool
}

// Graph is the dependency graph for one run: a node per plan step plus the
// root set. It is built once per run and discarded afterwards.
type Graph struct {
	// Nodes maps step number to its scheduling node.
	Nodes map[int]*Node

	// Roots lists the step numbers with no dependencies, in plan order.
	Roots []int
}

// BuildGraph turns a flat step list into a dependency graph.
//
// Construction is a pure function of the step list. The steps are validated
// first (duplicates, unknown references, cycles); on any error construction
// fails immediately and no partial graph is returned. Steps with no
// dependencies start in StatusReady and are recorded as roots.
func BuildGraph(steps []plan.Step) (*Graph, error) {
	if cycle := plan.DetectDependencyCycle(steps); cycle != nil {
		return nil, errors.NewPlanError(
			fmt.Sprintf("circular dependency involving step %d", cycle[0]),
			errors.ErrDependencyCycle,
		).WithStep(cycle[0])
	}

	result := plan.ValidateSteps(steps)
	if !result.IsValid {
		for _, msg := range result.Messages {
			if msg.IsError() {
				return nil, errors.NewPlanError(msg.Message, errors.ErrPlanInvalid).WithStep(msg.Step)
			}
		}
	}

	g := &Graph{
		Nodes: make(map[int]*Node, len(steps)),
	}

	for _, step := range steps {
		node := &Node{
			Step:       step,
			Agent:      step.Agent,
			Task:       step.Task,
			Status:     StatusPending,
			DependsOn:  make(map[int]bool, len(step.DependsOn)),
			Dependents: make(map[int]bool),
		}
		for _, dep := range step.DependsOn {
			node.DependsOn[dep] = true
		}
		if len(node.DependsOn) == 0 {
			node.Status = StatusReady
			g.Roots = append(g.Roots, step.Number)
		}
		g.Nodes[step.Number] = node
	}

	// Derive reverse edges
	for num, node := range g.Nodes {
		for dep := range node.DependsOn {
			g.Nodes[dep].Dependents[num] = true
		}
	}

	return g, nil
}

// ReadyNodes returns the numbers of all nodes in StatusReady, sorted for
// deterministic launch order.
func (g *Graph) ReadyNodes() []int {
	var ready []int
	for num, node := range g.Nodes {
		if node.Status == StatusReady {
			ready = append(ready, num)
		}
	}
	sort.Ints(ready)
	return ready
}

// UnlockDependents flips every dependent of the given completed node from
// pending to ready if all of its dependencies are now completed. This is
// the only way a node becomes ready after construction.
func (g *Graph) UnlockDependents(num int) {
	node := g.Nodes[num]
	for depNum := range node.Dependents {
		dependent := g.Nodes[depNum]
		if dependent.Status != StatusPending {
			continue
		}
		satisfied := true
		for dep := range dependent.DependsOn {
			if g.Nodes[dep].Status != StatusCompleted {
				satisfied = false
				break
			}
		}
		if satisfied {
			dependent.Status = StatusReady
		}
	}
}

// TransitiveDependents returns the numbers of every node transitively
// dependent on the given node, discovered breadth-first, in visit order.
func (g *Graph) TransitiveDependents(num int) []int {
	var closure []int
	visited := map[int]bool{num: true}
	queue := []int{num}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		deps := make([]int, 0, len(g.Nodes[current].Dependents))
		for dep := range g.Nodes[current].Dependents {
			deps = append(deps, dep)
		}
		sort.Ints(deps)
		for _, dep := range deps {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			closure = append(closure, dep)
			queue = append(queue, dep)
		}
	}

	return closure
}

// Active reports whether any node is still pending, ready, or running.
func (g *Graph) Active() bool {
	for _, node := range g.Nodes {
		if !node.Status.IsTerminal() {
			return true
		}
	}
	return false
}

// CountByStatus returns the number of nodes in each status.
func (g *Graph) CountByStatus() map[NodeStatus]int {
	counts := make(map[NodeStatus]int)
	for _, node := range g.Nodes {
		counts[node.Status]++
	}
	return counts
}
