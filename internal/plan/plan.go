// Package plan builds the frozen execution plan the executor drives: an
// ordered sequence of steps, each a set of protocol addresses sharing one
// execution line, such that every operand of every protocol in step i was
// produced in some step j < i or is an input/literal (spec §3 "Execution
// step", §4.1 "Execution plan construction").
package plan

import (
	"fmt"

	"github.com/nilmpc/mpcnode/internal/protocol"
)

// Strategy selects how protocols are grouped into steps.
type Strategy int

const (
	// Parallel assigns each protocol to the lowest step index such that all
	// its operands are available and every protocol sharing that step has
	// the same execution line (spec's default strategy).
	Parallel Strategy = iota
	// Sequential gives every protocol its own step, preserving DAG order.
	Sequential
)

// Step is a set of protocol addresses that run concurrently, all sharing
// one execution line.
type Step struct {
	Line  protocol.ExecutionLine
	Nodes []protocol.Node
}

// Plan is the frozen, ordered sequence of steps the executor walks; once
// built it is never re-ordered.
type Plan struct {
	Steps        []Step
	Outputs      []protocol.Node // unused placeholder kept for symmetry; real outputs come from the DAG
	Requirements protocol.Requirements
}

func lineKey(l protocol.ExecutionLine) interface{} {
	if l.Kind == protocol.Preprocessing {
		return [2]int{int(l.Kind), int(l.PreprocessingKey)}
	}
	return int(l.Kind)
}

// Build constructs a Plan from a protocol DAG using the given strategy
// (spec §4.1 "Execution plan construction").
func Build(dag *protocol.DAG, strategy Strategy) (*Plan, error) {
	switch strategy {
	case Sequential:
		return buildSequential(dag), nil
	case Parallel:
		return buildParallel(dag)
	default:
		return nil, fmt.Errorf("plan: unknown strategy %d", strategy)
	}
}

func buildSequential(dag *protocol.DAG) *Plan {
	steps := make([]Step, len(dag.Nodes))
	for i, n := range dag.Nodes {
		steps[i] = Step{Line: n.Line, Nodes: []protocol.Node{n}}
	}
	return &Plan{Steps: steps, Requirements: dag.Requirements}
}

// buildParallel implements the default strategy. It computes each node's
// dependency depth (siblings at the same depth can never depend on one
// another, since an edge strictly increases depth by at least one), buckets
// nodes by depth, and within each depth bucket splits into one step per
// distinct execution line, preserving first-seen order — satisfying both
// "lowest step index such that operands are available" and "distinct
// execution lines are never mixed in a step" without requiring an optimal
// (NP-adjacent) bin-packing search.
func buildParallel(dag *protocol.DAG) (*Plan, error) {
	producedAt := make(map[protocol.Address]int, len(dag.Nodes)) // Dest -> node index
	for i, n := range dag.Nodes {
		producedAt[n.Dest] = i
	}

	depth := make([]int, len(dag.Nodes))
	for i, n := range dag.Nodes {
		d := 0
		for _, operand := range n.Operands {
			if producer, ok := producedAt[operand]; ok {
				if depth[producer]+1 > d {
					d = depth[producer] + 1
				}
			}
		}
		depth[i] = d
	}

	maxDepth := 0
	for _, d := range depth {
		if d > maxDepth {
			maxDepth = d
		}
	}
	buckets := make([][]int, maxDepth+1)
	for i, d := range depth {
		buckets[d] = append(buckets[d], i)
	}

	var steps []Step
	for _, bucket := range buckets {
		groups := map[interface{}]*Step{}
		var order []interface{}
		for _, idx := range bucket {
			n := dag.Nodes[idx]
			key := lineKey(n.Line)
			g, ok := groups[key]
			if !ok {
				g = &Step{Line: n.Line}
				groups[key] = g
				order = append(order, key)
			}
			g.Nodes = append(g.Nodes, n)
		}
		for _, key := range order {
			steps = append(steps, *groups[key])
		}
	}
	return &Plan{Steps: steps, Requirements: dag.Requirements}, nil
}

// Validate checks the plan-correctness invariant (spec §8 "Plan
// correctness"): every operand of every protocol in step i was produced in
// an earlier step or is not protocol-produced at all (an input/literal).
func Validate(p *Plan) error {
	producedInStep := make(map[protocol.Address]int)
	for i, step := range p.Steps {
		for _, n := range step.Nodes {
			producedInStep[n.Dest] = i
		}
	}
	for i, step := range p.Steps {
		for _, n := range step.Nodes {
			for _, operand := range n.Operands {
				if producerStep, ok := producedInStep[operand]; ok && producerStep >= i {
					return fmt.Errorf("plan: operand %s of node at %s produced in step %d, not before step %d", operand, n.Dest, producerStep, i)
				}
			}
		}
	}
	return nil
}
