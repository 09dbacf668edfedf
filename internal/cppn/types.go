package cppn

import (
	"fmt"
	"sort"

	"aviary/internal/model"
)

// NodeType classifies a node within the genome graph.
type NodeType string

const (
	NodeInput  NodeType = "input"
	NodeHidden NodeType = "hidden"
	NodeOutput NodeType = "output"
)

// The query vector is (x, y, z, d) and the result vector is
// (vx, vy, vz, r, g, b). Input and output node ids are fixed; hidden node
// ids are allocated by the session counter starting at FirstHiddenID.
const (
	NumInputs     = 4
	NumOutputs    = 6
	FirstHiddenID = NumInputs + NumOutputs
)

var (
	inputLabels  = [NumInputs]string{"x", "y", "z", "d"}
	outputLabels = [NumOutputs]string{"vx", "vy", "vz", "r", "g", "b"}
)

type Node struct {
	ID         int      `json:"id"`
	Type       NodeType `json:"type"`
	Activation string   `json:"activation"`
	Bias       float64  `json:"bias"`
}

type Connection struct {
	Innovation int     `json:"innovation_id"`
	From       int     `json:"from"`
	To         int     `json:"to"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
}

// Genome is one CPPN graph plus its evolutionary metadata. Genomes are
// treated as immutable once they enter a population; operators clone first.
type Genome struct {
	ID          int          `json:"id"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	Parent1     *int         `json:"parent1"`
	Parent2     *int         `json:"parent2"`
	Fitness     *float64     `json:"fitness"`
}

// Clone returns a deep copy sharing no memory with the receiver.
func (g Genome) Clone() Genome {
	out := Genome{
		ID:          g.ID,
		Nodes:       make([]Node, len(g.Nodes)),
		Connections: make([]Connection, len(g.Connections)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Connections, g.Connections)
	if g.Parent1 != nil {
		v := *g.Parent1
		out.Parent1 = &v
	}
	if g.Parent2 != nil {
		v := *g.Parent2
		out.Parent2 = &v
	}
	if g.Fitness != nil {
		v := *g.Fitness
		out.Fitness = &v
	}
	return out
}

// Normalize sorts nodes by id and connections by innovation id so that
// identical genomes compare and serialize identically.
func (g *Genome) Normalize() {
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })
	sort.Slice(g.Connections, func(i, j int) bool {
		return g.Connections[i].Innovation < g.Connections[j].Innovation
	})
}

// NodeByID returns the node with the given id.
func (g Genome) NodeByID(id int) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasConnection reports whether any connection, enabled or not, links
// from -> to.
func (g Genome) HasConnection(from, to int) bool {
	for _, c := range g.Connections {
		if c.From == from && c.To == to {
			return true
		}
	}
	return false
}

// EnabledConnections counts connections with the enabled flag set.
func (g Genome) EnabledConnections() int {
	n := 0
	for _, c := range g.Connections {
		if c.Enabled {
			n++
		}
	}
	return n
}

// NodeLabel names a node for display: coordinate labels for inputs, channel
// labels for outputs, h<id> for hidden nodes.
func NodeLabel(n Node) string {
	switch n.Type {
	case NodeInput:
		if n.ID >= 0 && n.ID < NumInputs {
			return inputLabels[n.ID]
		}
	case NodeOutput:
		if n.ID >= NumInputs && n.ID < FirstHiddenID {
			return outputLabels[n.ID-NumInputs]
		}
	}
	return fmt.Sprintf("h%d", n.ID)
}

// Structure converts a genome into its inspectable graph form.
func Structure(g Genome) model.CPPNStructure {
	out := model.CPPNStructure{
		GenomeID:    g.ID,
		Nodes:       make([]model.CPPNNode, 0, len(g.Nodes)),
		Connections: make([]model.CPPNConnection, 0, len(g.Connections)),
	}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, model.CPPNNode{
			ID:         n.ID,
			Type:       string(n.Type),
			Label:      NodeLabel(n),
			Activation: n.Activation,
			Bias:       n.Bias,
		})
	}
	for _, c := range g.Connections {
		out.Connections = append(out.Connections, model.CPPNConnection{
			From:       c.From,
			To:         c.To,
			Weight:     c.Weight,
			Enabled:    c.Enabled,
			Innovation: c.Innovation,
		})
	}
	return out
}
