package cppn

import "math/rand"

const (
	inputActivation  = "identity"
	outputActivation = "tanh"

	initialWeightRange = 1.0
)

// NewMinimalGenome builds a seed genome: the fixed input and output frame
// with every input connected directly to every output, uniform random
// weights and no hidden nodes. Innovation ids come from innovationFor so
// the session registry sees the seed edges in a stable order.
func NewMinimalGenome(id int, innovationFor func(from, to int) int, rng *rand.Rand) Genome {
	g := Genome{
		ID:          id,
		Nodes:       make([]Node, 0, NumInputs+NumOutputs),
		Connections: make([]Connection, 0, NumInputs*NumOutputs),
	}

	for i := 0; i < NumInputs; i++ {
		g.Nodes = append(g.Nodes, Node{
			ID:         i,
			Type:       NodeInput,
			Activation: inputActivation,
		})
	}
	for o := 0; o < NumOutputs; o++ {
		g.Nodes = append(g.Nodes, Node{
			ID:         NumInputs + o,
			Type:       NodeOutput,
			Activation: outputActivation,
		})
	}

	for from := 0; from < NumInputs; from++ {
		for to := NumInputs; to < FirstHiddenID; to++ {
			g.Connections = append(g.Connections, Connection{
				Innovation: innovationFor(from, to),
				From:       from,
				To:         to,
				Weight:     uniformWeight(rng, initialWeightRange),
				Enabled:    true,
			})
		}
	}

	g.Normalize()
	return g
}

func uniformWeight(rng *rand.Rand, scale float64) float64 {
	return (rng.Float64()*2.0 - 1.0) * scale
}
