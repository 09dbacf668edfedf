package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"aviary/internal/cppn"
)

// Params collects the variation rates for one session. Rates are
// probabilities in [0, 1]; sigma and range values must be positive.
type Params struct {
	WeightRate        float64
	WeightPerturb     float64
	WeightSigma       float64
	WeightResetRange  float64
	BiasRate          float64
	BiasSigma         float64
	ActivationRate    float64
	ToggleRate        float64
	AddConnectionRate float64
	AddNodeRate       float64
	CrossoverRate     float64
	DisabledInherit   float64
	Attempts          int
}

// DefaultParams returns the standard interactive-evolution rates.
func DefaultParams() Params {
	return Params{
		WeightRate:        0.8,
		WeightPerturb:     0.9,
		WeightSigma:       0.5,
		WeightResetRange:  1.0,
		BiasRate:          0.3,
		BiasSigma:         0.25,
		ActivationRate:    0.1,
		ToggleRate:        0.05,
		AddConnectionRate: 0.25,
		AddNodeRate:       0.15,
		CrossoverRate:     0.6,
		DisabledInherit:   0.75,
		Attempts:          defaultAttempts,
	}
}

// Validate rejects rates outside [0, 1], non-positive spreads and a
// non-positive retry budget.
func (p Params) Validate() error {
	rates := []struct {
		name  string
		value float64
	}{
		{"weight_rate", p.WeightRate},
		{"weight_perturb", p.WeightPerturb},
		{"bias_rate", p.BiasRate},
		{"activation_rate", p.ActivationRate},
		{"toggle_rate", p.ToggleRate},
		{"add_connection_rate", p.AddConnectionRate},
		{"add_node_rate", p.AddNodeRate},
		{"crossover_rate", p.CrossoverRate},
		{"disabled_inherit", p.DisabledInherit},
	}
	for _, rate := range rates {
		if rate.value < 0 || rate.value > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", rate.name, rate.value)
		}
	}
	if p.WeightSigma <= 0 {
		return fmt.Errorf("weight_sigma must be > 0, got %v", p.WeightSigma)
	}
	if p.WeightResetRange <= 0 {
		return fmt.Errorf("weight_reset_range must be > 0, got %v", p.WeightResetRange)
	}
	if p.BiasSigma <= 0 {
		return fmt.Errorf("bias_sigma must be > 0, got %v", p.BiasSigma)
	}
	if p.Attempts <= 0 {
		return fmt.Errorf("attempts must be > 0, got %d", p.Attempts)
	}
	return nil
}

// Pipeline applies the session's mutation schedule to one child genome.
// The weight, bias and activation passes run on every child and gate
// per element; the structural operators gate once per child and fall
// back to an extra weight pass when they cannot find a target.
type Pipeline struct {
	rng     *rand.Rand
	weights *MutateWeights
	stages  []pipelineStage
}

type pipelineStage struct {
	rate     float64
	op       Operator
	fallback bool
}

// NewPipeline wires the operator set from params. The registry must be
// the owning session's; sharing one across sessions would leak
// innovation ids between runs.
func NewPipeline(params Params, innovations *Innovations, rng *rand.Rand) (*Pipeline, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	if innovations == nil {
		return nil, errors.New("innovation registry is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	weights := &MutateWeights{
		Rand:          rng,
		Rate:          params.WeightRate,
		PerturbChance: params.WeightPerturb,
		Sigma:         params.WeightSigma,
		ResetRange:    params.WeightResetRange,
	}
	return &Pipeline{
		rng:     rng,
		weights: weights,
		stages: []pipelineStage{
			{rate: 1, op: weights},
			{rate: 1, op: &MutateBiases{Rand: rng, Rate: params.BiasRate, Sigma: params.BiasSigma}},
			{rate: 1, op: &MutateActivations{Rand: rng, Rate: params.ActivationRate}},
			{rate: params.ToggleRate, op: &ToggleConnection{Rand: rng}, fallback: true},
			{rate: params.AddConnectionRate, op: &AddConnection{
				Rand:        rng,
				Innovations: innovations,
				WeightRange: params.WeightResetRange,
				Attempts:    params.Attempts,
			}, fallback: true},
			{rate: params.AddNodeRate, op: &AddNode{Rand: rng, Innovations: innovations}, fallback: true},
		},
	}, nil
}

// Mutate runs the schedule over one genome. ErrNoMutationChoice from a
// stage is never fatal: pass stages skip, structural stages retry as a
// weight pass and skip if even that finds nothing to do.
func (p *Pipeline) Mutate(ctx context.Context, genome cppn.Genome) (cppn.Genome, error) {
	out := genome
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return cppn.Genome{}, err
		}
		if stage.rate < 1 && p.rng.Float64() >= stage.rate {
			continue
		}
		next, err := stage.op.Apply(ctx, out)
		if err != nil && stage.fallback && errors.Is(err, ErrNoMutationChoice) {
			next, err = p.weights.Apply(ctx, out)
		}
		if err != nil {
			if errors.Is(err, ErrNoMutationChoice) {
				continue
			}
			return cppn.Genome{}, err
		}
		out = next
	}
	return out, nil
}
