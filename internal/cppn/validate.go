package cppn

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedGenome marks genomes that violate the structural invariants.
// Such genomes are rejected before they can enter a population.
var ErrMalformedGenome = errors.New("malformed genome")

// Validate checks the structural invariants: the fixed input/output frame,
// unique node and innovation ids, resolvable endpoints, direction rules and
// acyclicity. Acyclicity is enforced over every connection, enabled or not,
// so re-enabling a disabled connection can never introduce a cycle.
func Validate(g Genome) error {
	if len(g.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrMalformedGenome)
	}

	seen := make(map[int]Node, len(g.Nodes))
	inputs, outputs := 0, 0
	for _, n := range g.Nodes {
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %d", ErrMalformedGenome, n.ID)
		}
		seen[n.ID] = n

		switch n.Type {
		case NodeInput:
			if n.ID < 0 || n.ID >= NumInputs {
				return fmt.Errorf("%w: input node id %d outside [0,%d)", ErrMalformedGenome, n.ID, NumInputs)
			}
			inputs++
		case NodeOutput:
			if n.ID < NumInputs || n.ID >= FirstHiddenID {
				return fmt.Errorf("%w: output node id %d outside [%d,%d)", ErrMalformedGenome, n.ID, NumInputs, FirstHiddenID)
			}
			outputs++
		case NodeHidden:
			if n.ID < FirstHiddenID {
				return fmt.Errorf("%w: hidden node id %d below %d", ErrMalformedGenome, n.ID, FirstHiddenID)
			}
		default:
			return fmt.Errorf("%w: node %d has unknown type %q", ErrMalformedGenome, n.ID, n.Type)
		}

		if _, err := GetActivation(n.Activation); err != nil {
			return fmt.Errorf("%w: node %d: %v", ErrMalformedGenome, n.ID, err)
		}
	}
	if inputs != NumInputs {
		return fmt.Errorf("%w: %d input nodes, want %d", ErrMalformedGenome, inputs, NumInputs)
	}
	if outputs != NumOutputs {
		return fmt.Errorf("%w: %d output nodes, want %d", ErrMalformedGenome, outputs, NumOutputs)
	}

	innovations := make(map[int]bool, len(g.Connections))
	pairs := make(map[[2]int]bool, len(g.Connections))
	for _, c := range g.Connections {
		if innovations[c.Innovation] {
			return fmt.Errorf("%w: duplicate innovation id %d", ErrMalformedGenome, c.Innovation)
		}
		innovations[c.Innovation] = true

		pair := [2]int{c.From, c.To}
		if pairs[pair] {
			return fmt.Errorf("%w: duplicate connection %d->%d", ErrMalformedGenome, c.From, c.To)
		}
		pairs[pair] = true

		from, ok := seen[c.From]
		if !ok {
			return fmt.Errorf("%w: connection %d->%d references missing source", ErrMalformedGenome, c.From, c.To)
		}
		to, ok := seen[c.To]
		if !ok {
			return fmt.Errorf("%w: connection %d->%d references missing target", ErrMalformedGenome, c.From, c.To)
		}
		if from.Type == NodeOutput {
			return fmt.Errorf("%w: connection %d->%d leaves an output node", ErrMalformedGenome, c.From, c.To)
		}
		if to.Type == NodeInput {
			return fmt.Errorf("%w: connection %d->%d enters an input node", ErrMalformedGenome, c.From, c.To)
		}
		if c.From == c.To {
			return fmt.Errorf("%w: self loop on node %d", ErrMalformedGenome, c.From)
		}
	}

	if _, err := topologicalOrder(g); err != nil {
		return err
	}
	return nil
}

// CreatesCycle reports whether adding a from -> to connection would close a
// directed cycle. It walks the existing graph, enabled and disabled edges
// alike, checking whether `from` is already reachable from `to`.
func CreatesCycle(g Genome, from, to int) bool {
	if from == to {
		return true
	}

	next := make(map[int][]int, len(g.Nodes))
	for _, c := range g.Connections {
		next[c.From] = append(next[c.From], c.To)
	}

	visited := map[int]bool{to: true}
	queue := []int{to}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, succ := range next[node] {
			if succ == from {
				return true
			}
			if !visited[succ] {
				visited[succ] = true
				queue = append(queue, succ)
			}
		}
	}
	return false
}

// topologicalOrder returns every node id in a deterministic dependency
// order (Kahn's algorithm, smallest ready id first). Fails on cycles.
func topologicalOrder(g Genome) ([]int, error) {
	indegree := make(map[int]int, len(g.Nodes))
	next := make(map[int][]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n.ID] = 0
	}
	for _, c := range g.Connections {
		indegree[c.To]++
		next[c.From] = append(next[c.From], c.To)
	}

	ready := make([]int, 0, len(g.Nodes))
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Ints(ready)

	order := make([]int, 0, len(g.Nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := make([]int, 0, len(next[id]))
		for _, succ := range next[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				released = append(released, succ)
			}
		}
		sort.Ints(released)
		ready = mergeSorted(ready, released)
	}

	if len(order) != len(g.Nodes) {
		return nil, fmt.Errorf("%w: connection graph contains a cycle", ErrMalformedGenome)
	}
	return order, nil
}

func mergeSorted(a, b []int) []int {
	if len(b) == 0 {
		return a
	}
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
