package evo

import (
	"context"
	"errors"
	"math/rand"

	"aviary/internal/cppn"
)

// ErrNoMutationChoice reports that an operator found no valid target
// after its bounded retries. Callers skip the attempt or fall back to
// weight mutation; it never aborts a generation step.
var ErrNoMutationChoice = errors.New("no mutation choice available")

const defaultAttempts = 8

// MutateWeights walks every connection and, at the configured
// per-connection rate, either perturbs the weight with Gaussian noise
// or resets it uniformly. Disabled connections keep evolving weights so
// re-enabling them later stays meaningful.
type MutateWeights struct {
	Rand          *rand.Rand
	Rate          float64 // per-connection chance of mutation
	PerturbChance float64 // within that: perturb vs. full reset
	Sigma         float64 // perturbation is N(0, Sigma)
	ResetRange    float64 // reset draws U(-ResetRange, ResetRange)
}

func (o *MutateWeights) Name() string {
	return "mutate_weights"
}

func (o *MutateWeights) Apply(_ context.Context, genome cppn.Genome) (cppn.Genome, error) {
	if o == nil || o.Rand == nil {
		return cppn.Genome{}, errors.New("random source is required")
	}
	if o.Sigma <= 0 || o.ResetRange <= 0 {
		return cppn.Genome{}, errors.New("sigma and reset range must be > 0")
	}
	if len(genome.Connections) == 0 {
		return cppn.Genome{}, ErrNoMutationChoice
	}

	mutated := genome.Clone()
	for i := range mutated.Connections {
		if o.Rand.Float64() >= o.Rate {
			continue
		}
		if o.Rand.Float64() < o.PerturbChance {
			mutated.Connections[i].Weight += o.Rand.NormFloat64() * o.Sigma
		} else {
			mutated.Connections[i].Weight = (o.Rand.Float64()*2 - 1) * o.ResetRange
		}
	}
	return mutated, nil
}

// MutateBiases perturbs hidden and output node biases at the configured
// per-node rate. Input nodes pass coordinates straight through and are
// never touched.
type MutateBiases struct {
	Rand  *rand.Rand
	Rate  float64
	Sigma float64
}

func (o *MutateBiases) Name() string {
	return "mutate_biases"
}

func (o *MutateBiases) Apply(_ context.Context, genome cppn.Genome) (cppn.Genome, error) {
	if o == nil || o.Rand == nil {
		return cppn.Genome{}, errors.New("random source is required")
	}
	if o.Sigma <= 0 {
		return cppn.Genome{}, errors.New("sigma must be > 0")
	}
	eligible := false
	for _, n := range genome.Nodes {
		if n.Type != cppn.NodeInput {
			eligible = true
			break
		}
	}
	if !eligible {
		return cppn.Genome{}, ErrNoMutationChoice
	}

	mutated := genome.Clone()
	for i := range mutated.Nodes {
		if mutated.Nodes[i].Type == cppn.NodeInput {
			continue
		}
		if o.Rand.Float64() >= o.Rate {
			continue
		}
		mutated.Nodes[i].Bias += o.Rand.NormFloat64() * o.Sigma
	}
	return mutated, nil
}

// MutateActivations re-draws hidden node activation functions from the
// registry at the configured per-node rate. Outputs keep their fixed
// activation so the velocity and color mappings stay centered.
type MutateActivations struct {
	Rand *rand.Rand
	Rate float64
}

func (o *MutateActivations) Name() string {
	return "mutate_activations"
}

func (o *MutateActivations) Apply(_ context.Context, genome cppn.Genome) (cppn.Genome, error) {
	if o == nil || o.Rand == nil {
		return cppn.Genome{}, errors.New("random source is required")
	}
	hidden := 0
	for _, n := range genome.Nodes {
		if n.Type == cppn.NodeHidden {
			hidden++
		}
	}
	if hidden == 0 {
		return cppn.Genome{}, ErrNoMutationChoice
	}

	names := cppn.ListActivations()
	mutated := genome.Clone()
	for i := range mutated.Nodes {
		if mutated.Nodes[i].Type != cppn.NodeHidden {
			continue
		}
		if o.Rand.Float64() >= o.Rate {
			continue
		}
		choices := make([]string, 0, len(names))
		for _, name := range names {
			if name != mutated.Nodes[i].Activation {
				choices = append(choices, name)
			}
		}
		if len(choices) == 0 {
			continue
		}
		mutated.Nodes[i].Activation = choices[o.Rand.Intn(len(choices))]
	}
	return mutated, nil
}

// ToggleConnection flips the enabled flag of one random connection. The
// connection itself is never removed; acyclicity is maintained over
// disabled edges too, so re-enabling cannot introduce a cycle.
type ToggleConnection struct {
	Rand *rand.Rand
}

func (o *ToggleConnection) Name() string {
	return "toggle_connection"
}

func (o *ToggleConnection) Apply(_ context.Context, genome cppn.Genome) (cppn.Genome, error) {
	if o == nil || o.Rand == nil {
		return cppn.Genome{}, errors.New("random source is required")
	}
	if len(genome.Connections) == 0 {
		return cppn.Genome{}, ErrNoMutationChoice
	}

	idx := o.Rand.Intn(len(genome.Connections))
	mutated := genome.Clone()
	mutated.Connections[idx].Enabled = !mutated.Connections[idx].Enabled
	return mutated, nil
}

// AddConnection links two previously unconnected nodes. Endpoints are
// drawn at random for up to Attempts tries; a try is rejected when it
// would duplicate an edge, feed an input, leave an output, loop a node
// onto itself, or close a cycle.
type AddConnection struct {
	Rand        *rand.Rand
	Innovations *Innovations
	WeightRange float64
	Attempts    int
}

func (o *AddConnection) Name() string {
	return "add_connection"
}

func (o *AddConnection) Apply(_ context.Context, genome cppn.Genome) (cppn.Genome, error) {
	if o == nil || o.Rand == nil {
		return cppn.Genome{}, errors.New("random source is required")
	}
	if o.Innovations == nil {
		return cppn.Genome{}, errors.New("innovation registry is required")
	}
	if o.WeightRange <= 0 {
		return cppn.Genome{}, errors.New("weight range must be > 0")
	}
	attempts := o.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	sources := make([]int, 0, len(genome.Nodes))
	targets := make([]int, 0, len(genome.Nodes))
	for _, n := range genome.Nodes {
		if n.Type != cppn.NodeOutput {
			sources = append(sources, n.ID)
		}
		if n.Type != cppn.NodeInput {
			targets = append(targets, n.ID)
		}
	}
	if len(sources) == 0 || len(targets) == 0 {
		return cppn.Genome{}, ErrNoMutationChoice
	}

	for try := 0; try < attempts; try++ {
		from := sources[o.Rand.Intn(len(sources))]
		to := targets[o.Rand.Intn(len(targets))]
		if from == to {
			continue
		}
		if genome.HasConnection(from, to) {
			continue
		}
		if cppn.CreatesCycle(genome, from, to) {
			continue
		}

		mutated := genome.Clone()
		mutated.Connections = append(mutated.Connections, cppn.Connection{
			Innovation: o.Innovations.InnovationFor(from, to),
			From:       from,
			To:         to,
			Weight:     (o.Rand.Float64()*2 - 1) * o.WeightRange,
			Enabled:    true,
		})
		mutated.Normalize()
		return mutated, nil
	}
	return cppn.Genome{}, ErrNoMutationChoice
}

// AddNode splits a random enabled connection: the original is disabled
// and a fresh hidden node bridges it. The incoming weight is 1.0 and
// the outgoing keeps the original weight, preserving the pre-split
// function approximately.
type AddNode struct {
	Rand        *rand.Rand
	Innovations *Innovations
}

func (o *AddNode) Name() string {
	return "add_node"
}

func (o *AddNode) Apply(_ context.Context, genome cppn.Genome) (cppn.Genome, error) {
	if o == nil || o.Rand == nil {
		return cppn.Genome{}, errors.New("random source is required")
	}
	if o.Innovations == nil {
		return cppn.Genome{}, errors.New("innovation registry is required")
	}

	enabled := make([]int, 0, len(genome.Connections))
	for i, c := range genome.Connections {
		if c.Enabled {
			enabled = append(enabled, i)
		}
	}
	if len(enabled) == 0 {
		return cppn.Genome{}, ErrNoMutationChoice
	}

	idx := enabled[o.Rand.Intn(len(enabled))]
	names := cppn.ListActivations()

	mutated := genome.Clone()
	split := mutated.Connections[idx]
	mutated.Connections[idx].Enabled = false

	node := cppn.Node{
		ID:         o.Innovations.NextNodeID(),
		Type:       cppn.NodeHidden,
		Activation: names[o.Rand.Intn(len(names))],
	}
	mutated.Nodes = append(mutated.Nodes, node)
	mutated.Connections = append(mutated.Connections,
		cppn.Connection{
			Innovation: o.Innovations.InnovationFor(split.From, node.ID),
			From:       split.From,
			To:         node.ID,
			Weight:     1.0,
			Enabled:    true,
		},
		cppn.Connection{
			Innovation: o.Innovations.InnovationFor(node.ID, split.To),
			From:       node.ID,
			To:         split.To,
			Weight:     split.Weight,
			Enabled:    true,
		},
	)
	mutated.Normalize()
	return mutated, nil
}
