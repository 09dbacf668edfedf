package evo

import (
	"reflect"
	"testing"

	"aviary/internal/cppn"
)

func fitnessPtr(v float64) *float64 {
	return &v
}

func TestCrossoverAlignsMatchingGenes(t *testing.T) {
	reg := NewInnovations()
	p1 := minimalGenome(reg, 40)
	p2 := minimalGenome(reg, 41)
	for i := range p1.Connections {
		p1.Connections[i].Weight = 1
		p2.Connections[i].Weight = -1
	}
	p1.Fitness = fitnessPtr(1.0)
	p2.Fitness = fitnessPtr(0.5)

	op := &Crossover{Rand: testRNG(42), DisabledInherit: 0.75}
	mixed := false
	for i := 0; i < 5; i++ {
		child, err := op.Child(p1, p2)
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if err := cppn.Validate(child); err != nil {
			t.Fatalf("child invalid: %v", err)
		}
		if len(child.Connections) != len(p1.Connections) {
			t.Fatalf("child has %d connections, want %d", len(child.Connections), len(p1.Connections))
		}
		fromP1, fromP2 := 0, 0
		for _, c := range child.Connections {
			switch c.Weight {
			case 1:
				fromP1++
			case -1:
				fromP2++
			default:
				t.Fatalf("child weight %v belongs to neither parent", c.Weight)
			}
			if !c.Enabled {
				t.Fatal("gene enabled in both parents came out disabled")
			}
		}
		if fromP1 > 0 && fromP2 > 0 {
			mixed = true
		}
	}
	if !mixed {
		t.Fatal("no child mixed weights from both parents")
	}
}

func TestCrossoverDisjointGenesComeFromFitterParent(t *testing.T) {
	reg := NewInnovations()
	plain := minimalGenome(reg, 43)
	split := withHiddenNode(t, reg, 44)
	op := &Crossover{Rand: testRNG(45), DisabledInherit: 0.75}

	t.Run("plain parent fitter", func(t *testing.T) {
		p1, p2 := plain.Clone(), split.Clone()
		p1.Fitness = fitnessPtr(1.0)
		p2.Fitness = fitnessPtr(0.5)

		child, err := op.Child(p1, p2)
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if len(child.Connections) != len(plain.Connections) {
			t.Fatalf("child inherited %d connections, want fitter's %d", len(child.Connections), len(plain.Connections))
		}
		if _, ok := child.NodeByID(cppn.FirstHiddenID); ok {
			t.Fatal("child inherited the weaker parent's hidden node")
		}
	})

	t.Run("split parent fitter", func(t *testing.T) {
		p1, p2 := plain.Clone(), split.Clone()
		p1.Fitness = fitnessPtr(0.2)
		p2.Fitness = fitnessPtr(0.9)

		child, err := op.Child(p1, p2)
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if len(child.Connections) != len(split.Connections) {
			t.Fatalf("child inherited %d connections, want fitter's %d", len(child.Connections), len(split.Connections))
		}
		if _, ok := child.NodeByID(cppn.FirstHiddenID); !ok {
			t.Fatal("child lost the fitter parent's hidden node")
		}
	})
}

func TestCrossoverTieFavorsFirstParent(t *testing.T) {
	reg := NewInnovations()
	p1 := withHiddenNode(t, reg, 46)
	p2 := withHiddenNode(t, reg, 47)
	p1.Fitness = fitnessPtr(0.8)
	p2.Fitness = fitnessPtr(0.8)

	op := &Crossover{Rand: testRNG(48), DisabledInherit: 0.75}
	child, err := op.Child(p1, p2)
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	if _, ok := child.NodeByID(cppn.FirstHiddenID); !ok {
		t.Fatal("tie did not take the first parent's hidden node")
	}
	if _, ok := child.NodeByID(cppn.FirstHiddenID + 1); ok {
		t.Fatal("tie inherited the second parent's hidden node")
	}
}

func TestCrossoverDisabledGeneInheritance(t *testing.T) {
	reg := NewInnovations()
	p1 := minimalGenome(reg, 49)
	p2 := p1.Clone()
	p2.ID = reg.NextGenomeID()
	p2.Connections[0].Enabled = false
	p1.Fitness = fitnessPtr(0.5)
	p2.Fitness = fitnessPtr(0.5)

	t.Run("always inherit disabled", func(t *testing.T) {
		op := &Crossover{Rand: testRNG(50), DisabledInherit: 1.0}
		child, err := op.Child(p1, p2)
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		for _, c := range child.Connections {
			if c.Innovation == p2.Connections[0].Innovation {
				if c.Enabled {
					t.Fatal("gene stayed enabled at disabled_inherit 1.0")
				}
			} else if !c.Enabled {
				t.Fatalf("unrelated gene %d disabled", c.Innovation)
			}
		}
	})

	t.Run("always re-enable", func(t *testing.T) {
		op := &Crossover{Rand: testRNG(51), DisabledInherit: 0.0}
		child, err := op.Child(p1, p2)
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		for _, c := range child.Connections {
			if !c.Enabled {
				t.Fatalf("gene %d disabled at disabled_inherit 0.0", c.Innovation)
			}
		}
	})
}

func TestCrossoverDropsUnreferencedHiddenNodes(t *testing.T) {
	reg := NewInnovations()
	p1 := minimalGenome(reg, 52)
	p1.Nodes = append(p1.Nodes, cppn.Node{ID: reg.NextNodeID(), Type: cppn.NodeHidden, Activation: "sine"})
	p1.Normalize()
	p2 := minimalGenome(reg, 53)
	p1.Fitness = fitnessPtr(0.9)
	p2.Fitness = fitnessPtr(0.1)

	op := &Crossover{Rand: testRNG(54), DisabledInherit: 0.75}
	child, err := op.Child(p1, p2)
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	if _, ok := child.NodeByID(cppn.FirstHiddenID); ok {
		t.Fatal("isolated hidden node survived crossover")
	}
	if len(child.Nodes) != cppn.NumInputs+cppn.NumOutputs {
		t.Fatalf("child has %d nodes, want the bare frame %d", len(child.Nodes), cppn.NumInputs+cppn.NumOutputs)
	}
}

func TestCrossoverDoesNotMutateParents(t *testing.T) {
	reg := NewInnovations()
	p1 := minimalGenome(reg, 55)
	p2 := withHiddenNode(t, reg, 56)
	p1.Fitness = fitnessPtr(0.3)
	p2.Fitness = fitnessPtr(0.7)
	snap1, snap2 := p1.Clone(), p2.Clone()

	op := &Crossover{Rand: testRNG(57), DisabledInherit: 0.75}
	if _, err := op.Child(p1, p2); err != nil {
		t.Fatalf("crossover: %v", err)
	}
	if !reflect.DeepEqual(p1, snap1) || !reflect.DeepEqual(p2, snap2) {
		t.Fatal("crossover modified a parent genome")
	}
}
