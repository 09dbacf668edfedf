package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"aviary/internal/cppn"
)

// Crossover breeds a child from two parents by aligning connections on
// innovation ids. Matching genes take either parent's weight uniformly
// at random; disjoint and excess genes come from the fitter parent only
// (ties favor the first parent, an arbitrary but fixed choice). A gene
// disabled in either parent stays disabled in the child with
// probability DisabledInherit, otherwise it is enabled.
type Crossover struct {
	Rand            *rand.Rand
	DisabledInherit float64
}

// Child builds the offspring genome. The caller assigns id, parent
// attribution and fitness afterwards. The result is re-validated; an
// invalid child comes back as an error so the caller can fall back to
// cloning a parent instead.
func (o *Crossover) Child(parent1, parent2 cppn.Genome) (cppn.Genome, error) {
	if o == nil || o.Rand == nil {
		return cppn.Genome{}, errors.New("random source is required")
	}

	fitter, other := parent1, parent2
	if fitnessValue(parent2) > fitnessValue(parent1) {
		fitter, other = parent2, parent1
	}

	otherConns := make(map[int]cppn.Connection, len(other.Connections))
	for _, c := range other.Connections {
		otherConns[c.Innovation] = c
	}
	otherNodes := make(map[int]cppn.Node, len(other.Nodes))
	for _, n := range other.Nodes {
		otherNodes[n.ID] = n
	}

	child := cppn.Genome{
		Nodes:       make([]cppn.Node, 0, len(fitter.Nodes)),
		Connections: make([]cppn.Connection, 0, len(fitter.Connections)),
	}

	referenced := make(map[int]bool, len(fitter.Nodes))
	for _, gene := range fitter.Connections {
		inherited := gene
		match, matched := otherConns[gene.Innovation]
		if matched && o.Rand.Intn(2) == 0 {
			inherited.Weight = match.Weight
		}
		if !gene.Enabled || (matched && !match.Enabled) {
			inherited.Enabled = o.Rand.Float64() >= o.DisabledInherit
		} else {
			inherited.Enabled = true
		}
		child.Connections = append(child.Connections, inherited)
		referenced[inherited.From] = true
		referenced[inherited.To] = true
	}

	// The input/output frame always carries over; hidden nodes only
	// when an inherited gene still references them.
	for _, n := range fitter.Nodes {
		if n.Type == cppn.NodeHidden && !referenced[n.ID] {
			continue
		}
		pick := n
		if match, ok := otherNodes[n.ID]; ok && o.Rand.Intn(2) == 0 {
			pick = match
		}
		child.Nodes = append(child.Nodes, pick)
	}

	child.Normalize()
	if err := cppn.Validate(child); err != nil {
		return cppn.Genome{}, fmt.Errorf("crossover child: %w", err)
	}
	return child, nil
}

func fitnessValue(g cppn.Genome) float64 {
	if g.Fitness == nil {
		return 0
	}
	return *g.Fitness
}
