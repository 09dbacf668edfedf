// Package session tracks live evolution runs for concurrent clients.
// Every session owns its population manager outright, so innovation ids,
// node ids and genome ids never leak between sessions.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aviary/internal/cppn"
	"aviary/internal/evo"
	"aviary/internal/model"
)

const (
	// DefaultNumDrones is the swarm size used when a session does not
	// request one.
	DefaultNumDrones = 5
	// MaxNumDrones bounds the swarm size a session may request.
	MaxNumDrones = 100
	// DefaultTTL is how long an untouched session survives.
	DefaultTTL = 60 * time.Minute
)

// Config sizes one session. Zero fields take the documented defaults;
// population size, seed and variation rates are checked by the manager.
type Config struct {
	NumDrones      int
	PopulationSize int
	Seed           int64
	TTL            time.Duration
	Params         evo.Params
}

func (c Config) withDefaults() Config {
	if c.NumDrones == 0 {
		c.NumDrones = DefaultNumDrones
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	return c
}

func (c Config) validate() error {
	if c.NumDrones < 1 || c.NumDrones > MaxNumDrones {
		return fmt.Errorf("drone count must be in [1, %d], got %d", MaxNumDrones, c.NumDrones)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", c.TTL)
	}
	return nil
}

// Session binds one population to an id. The mutex serializes every
// manager call; accessors hand back copies so callers never touch
// shared state after the lock is released.
type Session struct {
	id  string
	cfg Config

	mu      sync.Mutex
	manager *evo.Manager
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// NumDrones returns the swarm size patterns decode with.
func (s *Session) NumDrones() int { return s.cfg.NumDrones }

// TTL returns the idle lifetime of the session.
func (s *Session) TTL() time.Duration { return s.cfg.TTL }

// Generation returns the current generation number.
func (s *Session) Generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Generation()
}

// PopulationSize returns the fixed population size.
func (s *Session) PopulationSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.PopulationSize()
}

// GenomeIDs returns the current genome ids in ascending order.
func (s *Session) GenomeIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.GenomeIDs()
}

// Genome returns a deep copy of one genome of the current generation.
func (s *Session) Genome(id int) (cppn.Genome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Genome(id)
}

// Genomes returns deep copies of the whole population.
func (s *Session) Genomes() []cppn.Genome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Genomes()
}

// AssignFitness overwrites one genome's fitness.
func (s *Session) AssignFitness(id int, fitness float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.AssignFitness(id, fitness)
}

// FitnessStatus tallies fitness assignment across the population.
func (s *Session) FitnessStatus() model.FitnessStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.FitnessStatus()
}

// Evolve runs one generational replacement step and returns the new
// generation number.
func (s *Session) Evolve(ctx context.Context, defaultFitness float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Evolve(ctx, defaultFitness)
}

// History returns a deep copy of the generation records so far.
func (s *Session) History() []model.GenerationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.History()
}
