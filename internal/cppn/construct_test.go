package cppn

import (
	"math/rand"
	"testing"
)

func sequentialInnovations() func(from, to int) int {
	next := 0
	seen := make(map[[2]int]int)
	return func(from, to int) int {
		if id, ok := seen[[2]int{from, to}]; ok {
			return id
		}
		id := next
		next++
		seen[[2]int{from, to}] = id
		return id
	}
}

func TestNewMinimalGenomeShape(t *testing.T) {
	g := NewMinimalGenome(3, sequentialInnovations(), rand.New(rand.NewSource(1)))

	if err := Validate(g); err != nil {
		t.Fatalf("seed genome invalid: %v", err)
	}
	if g.ID != 3 {
		t.Fatalf("genome id: got=%d want=3", g.ID)
	}
	if len(g.Nodes) != NumInputs+NumOutputs {
		t.Fatalf("seed node count: got=%d want=%d", len(g.Nodes), NumInputs+NumOutputs)
	}
	if len(g.Connections) != NumInputs*NumOutputs {
		t.Fatalf("seed connection count: got=%d want=%d", len(g.Connections), NumInputs*NumOutputs)
	}
	if g.Parent1 != nil || g.Parent2 != nil || g.Fitness != nil {
		t.Fatalf("seed genome should carry no lineage or fitness: %+v", g)
	}

	for _, c := range g.Connections {
		if !c.Enabled {
			t.Fatalf("seed connection %d->%d disabled", c.From, c.To)
		}
		if c.Weight < -initialWeightRange || c.Weight > initialWeightRange {
			t.Fatalf("seed weight out of range: %f", c.Weight)
		}
	}
}

func TestNewMinimalGenomeInnovationsAreDense(t *testing.T) {
	g := NewMinimalGenome(0, sequentialInnovations(), rand.New(rand.NewSource(1)))

	seen := make(map[int]bool)
	for _, c := range g.Connections {
		seen[c.Innovation] = true
	}
	for i := 0; i < NumInputs*NumOutputs; i++ {
		if !seen[i] {
			t.Fatalf("missing innovation id %d in seed genome", i)
		}
	}
}

func TestNewMinimalGenomeDeterministicWithSeed(t *testing.T) {
	a := NewMinimalGenome(0, sequentialInnovations(), rand.New(rand.NewSource(7)))
	b := NewMinimalGenome(0, sequentialInnovations(), rand.New(rand.NewSource(7)))

	if len(a.Connections) != len(b.Connections) {
		t.Fatalf("connection counts differ: %d vs %d", len(a.Connections), len(b.Connections))
	}
	for i := range a.Connections {
		if a.Connections[i] != b.Connections[i] {
			t.Fatalf("connection %d differs: %+v vs %+v", i, a.Connections[i], b.Connections[i])
		}
	}
}
