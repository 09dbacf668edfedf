package cppn

import (
	"fmt"
	"math"
)

// DefaultVelocityScale maps raw outputs, typically in [-1, 1], to a
// velocity range of about +/-2 m/s.
const DefaultVelocityScale = 2.0

const (
	colorMin = 0
	colorMax = 255
)

// Result is one query's six output channels. Velocity components are
// unclamped; colors are clamped integers in [0, 255].
type Result struct {
	VX float64
	VY float64
	VZ float64
	R  int
	G  int
	B  int
}

type weightedInput struct {
	slot   int
	weight float64
}

type evalStep struct {
	slot int
	bias float64
	fn   ActivationFunc
	in   []weightedInput
}

// Network is the compiled evaluation plan of one genome: a fixed
// topological order with resolved activation functions. Compiling once and
// querying many times keeps per-sample work minimal. A Network is
// read-only after Compile and safe for concurrent queries.
type Network struct {
	VelocityScale float64

	slots   int
	inputs  [NumInputs]int
	outputs [NumOutputs]int
	steps   []evalStep
}

// Compile validates the genome and builds its evaluation plan. Only enabled
// connections feed evaluation; a node with no enabled inputs evaluates to
// activation(bias), so partially wired genomes degrade instead of failing.
func Compile(g Genome) (*Network, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	order, err := topologicalOrder(g)
	if err != nil {
		return nil, err
	}

	slotOf := make(map[int]int, len(order))
	for slot, id := range order {
		slotOf[id] = slot
	}

	incoming := make(map[int][]weightedInput, len(g.Nodes))
	for _, c := range g.Connections {
		if !c.Enabled {
			continue
		}
		incoming[c.To] = append(incoming[c.To], weightedInput{slot: slotOf[c.From], weight: c.Weight})
	}

	net := &Network{
		VelocityScale: DefaultVelocityScale,
		slots:         len(order),
		steps:         make([]evalStep, 0, len(order)-NumInputs),
	}
	for _, n := range g.Nodes {
		switch n.Type {
		case NodeInput:
			net.inputs[n.ID] = slotOf[n.ID]
		case NodeOutput:
			net.outputs[n.ID-NumInputs] = slotOf[n.ID]
		}
	}

	byID := make(map[int]Node, len(g.Nodes))
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	for _, id := range order {
		n := byID[id]
		if n.Type == NodeInput {
			continue
		}
		fn, err := GetActivation(n.Activation)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		net.steps = append(net.steps, evalStep{
			slot: slotOf[id],
			bias: n.Bias,
			fn:   fn,
			in:   incoming[id],
		})
	}
	return net, nil
}

// Query evaluates the network at one spatial sample. The distance input
// d = sqrt(x^2+y^2+z^2) is derived here and never stored.
func (n *Network) Query(x, y, z float64) Result {
	d := math.Sqrt(x*x + y*y + z*z)

	values := make([]float64, n.slots)
	values[n.inputs[0]] = x
	values[n.inputs[1]] = y
	values[n.inputs[2]] = z
	values[n.inputs[3]] = d

	for _, step := range n.steps {
		total := step.bias
		for _, in := range step.in {
			total += values[in.slot] * in.weight
		}
		values[step.slot] = step.fn(total)
	}

	return Result{
		VX: values[n.outputs[0]] * n.VelocityScale,
		VY: values[n.outputs[1]] * n.VelocityScale,
		VZ: values[n.outputs[2]] * n.VelocityScale,
		R:  scaleToColor(values[n.outputs[3]]),
		G:  scaleToColor(values[n.outputs[4]]),
		B:  scaleToColor(values[n.outputs[5]]),
	}
}

// scaleToColor maps a raw output, assumed to sit in [-1, 1], onto the
// integer color range [0, 255].
func scaleToColor(raw float64) int {
	normalized := (raw + 1.0) / 2.0
	scaled := normalized * float64(colorMax-colorMin)
	clipped := math.Max(colorMin, math.Min(colorMax, scaled))
	return int(clipped)
}
