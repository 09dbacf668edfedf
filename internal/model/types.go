package model

import (
	"encoding/json"
	"time"
)

// DroneState is one drone's position and light color at a single frame.
type DroneState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	R int     `json:"r"`
	G int     `json:"g"`
	B int     `json:"b"`
}

// Frame holds every drone's state at time T. Drone order is stable across
// the frames of one animation.
type Frame struct {
	T      float64      `json:"t"`
	Drones []DroneState `json:"drones"`
}

// Animation is the decoded phenotype of one genome: a uniformly sampled
// multi-drone trajectory. This is also the file exchange format.
type Animation struct {
	ID     int     `json:"id"`
	Frames []Frame `json:"frames"`
}

// GenomeRecord is one genome's lineage entry inside a generation record.
// Parent and fitness fields are nil when never assigned.
type GenomeRecord struct {
	GenomeID int      `json:"genome_id"`
	Parent1  *int     `json:"parent1"`
	Parent2  *int     `json:"parent2"`
	Fitness  *float64 `json:"fitness"`
}

// GenerationRecord is the append-only history entry for one completed
// generation.
type GenerationRecord struct {
	Generation int            `json:"generation"`
	Genomes    []GenomeRecord `json:"genomes"`
}

// CPPNNode describes one node of a genome for clients that render the
// network graph.
type CPPNNode struct {
	ID         int     `json:"id"`
	Type       string  `json:"type"`
	Label      string  `json:"label"`
	Activation string  `json:"activation"`
	Bias       float64 `json:"bias"`
}

// CPPNConnection describes one connection of a genome.
type CPPNConnection struct {
	From       int     `json:"from"`
	To         int     `json:"to"`
	Weight     float64 `json:"weight"`
	Enabled    bool    `json:"enabled"`
	Innovation int     `json:"innovation_id"`
}

// CPPNStructure is the inspectable form of a genome graph.
type CPPNStructure struct {
	GenomeID    int              `json:"genome_id"`
	Nodes       []CPPNNode       `json:"nodes"`
	Connections []CPPNConnection `json:"connections"`
}

// FitnessStatus summarizes how many genomes of the current generation have
// an assigned fitness.
type FitnessStatus struct {
	Total      int `json:"total"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
}

// GalleryEntry is one archived animation together with the structure of the
// genome that produced it. Payloads are stored verbatim.
type GalleryEntry struct {
	ID            int64           `json:"id"`
	AnimationData json.RawMessage `json:"animation_data"`
	CPPNData      json.RawMessage `json:"cppn_data"`
	CreatedAt     time.Time       `json:"created_at"`
}

// GalleryListItem is the listing projection of a gallery entry.
type GalleryListItem struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
