package evo

import (
	"context"

	"aviary/internal/cppn"
)

// Operator is a single variation strategy over genomes. Implementations
// clone the input genome and never modify it in place; a result that
// fails validation is a bug in the operator, not a recoverable state.
type Operator interface {
	Name() string
	Apply(ctx context.Context, genome cppn.Genome) (cppn.Genome, error)
}
