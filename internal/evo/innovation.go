package evo

import (
	"sync"

	"aviary/internal/cppn"
)

// Innovations is the session-scoped registry of historical markers. The
// first time a (from, to) edge appears anywhere in the session it is
// assigned the next innovation id; later re-creations of the same edge
// reuse that id, which is what lets crossover align connections across
// genomes of different topology. Node and genome ids are allocated here
// too so they stay monotonic for the life of the session and are never
// reused, even across generations.
type Innovations struct {
	mu         sync.Mutex
	byEdge     map[[2]int]int
	next       int
	nextNode   int
	nextGenome int
}

// NewInnovations returns an empty registry. Hidden node ids start above
// the fixed input/output frame.
func NewInnovations() *Innovations {
	return &Innovations{
		byEdge:   make(map[[2]int]int),
		nextNode: cppn.FirstHiddenID,
	}
}

// InnovationFor returns the innovation id for the (from, to) edge,
// minting a fresh one on first sight.
func (r *Innovations) InnovationFor(from, to int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := [2]int{from, to}
	if id, ok := r.byEdge[key]; ok {
		return id
	}
	id := r.next
	r.next++
	r.byEdge[key] = id
	return id
}

// NextNodeID allocates a fresh hidden node id.
func (r *Innovations) NextNodeID() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextNode
	r.nextNode++
	return id
}

// NextGenomeID allocates a fresh genome id.
func (r *Innovations) NextGenomeID() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextGenome
	r.nextGenome++
	return id
}

// Size reports how many distinct edges have been assigned ids.
func (r *Innovations) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byEdge)
}
