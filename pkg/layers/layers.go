package layers

import (
	"errors"
	"fmt"

	"github.com/bft-labs/rigging/pkg/container"
)

// Layering errors. These are configuration errors: fatal, detected before
// any phase runs, never retried.
var (
	// ErrDuplicateToken — the same token appears in two nodes.
	ErrDuplicateToken = errors.New("layers: duplicate token")

	// ErrUnknownDependency — a node depends on a token absent from the input.
	ErrUnknownDependency = errors.New("layers: unknown dependency")

	// ErrCycle — the dependency graph contains a cycle.
	ErrCycle = errors.New("layers: dependency cycle")
)

// Node is one entry of the dependency graph: a token plus the tokens it
// depends on.
type Node struct {
	Token     *container.Token
	DependsOn []*container.Token
}

// Compute partitions the nodes into ordered layers using Kahn peeling:
// each round collects every node whose remaining unresolved-dependency
// count is zero, in input order, then decrements the counts of their
// dependents. The result is deterministic for a fixed input.
//
// Invariants of the returned layering:
//   - every token appears in exactly one layer;
//   - every dependency of a token in layer i lies in some layer j < i.
//
// An unknown dependency or a cycle is a fatal error; no partial layering
// is returned.
func Compute(nodes []Node) ([][]*container.Token, error) {
	index := make(map[*container.Token]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.Token]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateToken, n.Token)
		}
		index[n.Token] = i
	}

	// dependency → dependent edges, plus per-node unresolved counts.
	pending := make([]int, len(nodes))
	dependents := make(map[*container.Token][]int, len(nodes))
	for i, n := range nodes {
		for _, dep := range n.DependsOn {
			if _, known := index[dep]; !known {
				return nil, fmt.Errorf("%w: %s requires %s", ErrUnknownDependency, n.Token, dep)
			}
			dependents[dep] = append(dependents[dep], i)
			pending[i]++
		}
	}

	placed := make([]bool, len(nodes))
	remaining := len(nodes)
	var out [][]*container.Token

	for remaining > 0 {
		var layer []*container.Token
		var picked []int
		for i, n := range nodes {
			if !placed[i] && pending[i] == 0 {
				layer = append(layer, n.Token)
				picked = append(picked, i)
			}
		}
		if len(picked) == 0 {
			// No zero-count candidate left: a cycle. Name one implicated node.
			for i, n := range nodes {
				if !placed[i] {
					return nil, fmt.Errorf("%w: involves %s", ErrCycle, n.Token)
				}
			}
		}
		// Decrement dependents only after the whole layer is collected, so
		// nodes freed by this layer land in the next one.
		for _, i := range picked {
			placed[i] = true
			for _, d := range dependents[nodes[i].Token] {
				pending[d]--
			}
		}
		remaining -= len(picked)
		out = append(out, layer)
	}

	return out, nil
}

// Group maps a token subset back onto previously computed layers and
// returns the non-empty groups in reverse layer order (highest layer
// first). It is used for teardown ordering without recomputation: within
// the subset, dependents come before their dependencies.
func Group(tokens []*container.Token, computed [][]*container.Token) [][]*container.Token {
	want := make(map[*container.Token]bool, len(tokens))
	for _, t := range tokens {
		want[t] = true
	}
	var out [][]*container.Token
	for i := len(computed) - 1; i >= 0; i-- {
		var group []*container.Token
		for _, t := range computed[i] {
			if want[t] {
				group = append(group, t)
			}
		}
		if len(group) > 0 {
			out = append(out, group)
		}
	}
	return out
}
