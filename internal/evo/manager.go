package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"aviary/internal/cppn"
	"aviary/internal/model"
)

// ErrGenomeNotFound reports an unknown genome id within a session's
// current generation.
var ErrGenomeNotFound = errors.New("genome not found")

// DefaultPopulationSize matches the candidate grid shown to the user.
const DefaultPopulationSize = 12

// Population is one generation's worth of genomes, ordered by id.
type Population struct {
	Generation int
	Genomes    []cppn.Genome
}

// ManagerConfig configures one session's evolution run. The zero Params
// value selects DefaultParams; a zero Seed derives one from the clock.
type ManagerConfig struct {
	PopulationSize int
	Seed           int64
	Params         Params
}

// Manager owns the live population for one session: id allocation,
// fitness bookkeeping, the generational replacement step and the
// lineage history. It is not safe for concurrent use; the session
// layer serializes access to it.
type Manager struct {
	params      Params
	rng         *rand.Rand
	innovations *Innovations
	pipeline    *Pipeline
	crossover   *Crossover
	pop         Population
	history     []model.GenerationRecord
}

// NewManager seeds generation 0 with minimal genomes: the fixed frame,
// full input-to-output connectivity, uniform random weights, no hidden
// nodes, fitness and parents unset.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.PopulationSize == 0 {
		cfg.PopulationSize = DefaultPopulationSize
	}
	if cfg.PopulationSize < 1 {
		return nil, fmt.Errorf("population size must be >= 1, got %d", cfg.PopulationSize)
	}
	if cfg.Params == (Params{}) {
		cfg.Params = DefaultParams()
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(seed))
	innovations := NewInnovations()
	pipeline, err := NewPipeline(cfg.Params, innovations, rng)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		params:      cfg.Params,
		rng:         rng,
		innovations: innovations,
		pipeline:    pipeline,
		crossover:   &Crossover{Rand: rng, DisabledInherit: cfg.Params.DisabledInherit},
	}
	m.pop.Genomes = make([]cppn.Genome, 0, cfg.PopulationSize)
	for i := 0; i < cfg.PopulationSize; i++ {
		id := innovations.NextGenomeID()
		m.pop.Genomes = append(m.pop.Genomes, cppn.NewMinimalGenome(id, innovations.InnovationFor, rng))
	}
	return m, nil
}

// Generation returns the current generation number.
func (m *Manager) Generation() int {
	return m.pop.Generation
}

// PopulationSize returns the fixed population size.
func (m *Manager) PopulationSize() int {
	return len(m.pop.Genomes)
}

// GenomeIDs returns the current genome ids in ascending order.
func (m *Manager) GenomeIDs() []int {
	ids := make([]int, 0, len(m.pop.Genomes))
	for _, g := range m.pop.Genomes {
		ids = append(ids, g.ID)
	}
	return ids
}

// Genome returns a deep copy of one genome of the current generation.
func (m *Manager) Genome(id int) (cppn.Genome, error) {
	for _, g := range m.pop.Genomes {
		if g.ID == id {
			return g.Clone(), nil
		}
	}
	return cppn.Genome{}, fmt.Errorf("genome %d: %w", id, ErrGenomeNotFound)
}

// Genomes returns deep copies of the whole population in id order.
func (m *Manager) Genomes() []cppn.Genome {
	out := make([]cppn.Genome, 0, len(m.pop.Genomes))
	for _, g := range m.pop.Genomes {
		out = append(out, g.Clone())
	}
	return out
}

// AssignFitness overwrites one genome's fitness. Reassigning before an
// evolve replaces the earlier value.
func (m *Manager) AssignFitness(id int, fitness float64) error {
	for i := range m.pop.Genomes {
		if m.pop.Genomes[i].ID == id {
			v := fitness
			m.pop.Genomes[i].Fitness = &v
			return nil
		}
	}
	return fmt.Errorf("genome %d: %w", id, ErrGenomeNotFound)
}

// FitnessStatus tallies fitness assignment across the population.
func (m *Manager) FitnessStatus() model.FitnessStatus {
	assigned := 0
	for _, g := range m.pop.Genomes {
		if g.Fitness != nil {
			assigned++
		}
	}
	return model.FitnessStatus{
		Total:      len(m.pop.Genomes),
		Assigned:   assigned,
		Unassigned: len(m.pop.Genomes) - assigned,
	}
}

// History returns a deep copy of the generation records so far.
func (m *Manager) History() []model.GenerationRecord {
	out := make([]model.GenerationRecord, 0, len(m.history))
	for _, rec := range m.history {
		clone := model.GenerationRecord{
			Generation: rec.Generation,
			Genomes:    make([]model.GenomeRecord, 0, len(rec.Genomes)),
		}
		for _, g := range rec.Genomes {
			clone.Genomes = append(clone.Genomes, cloneGenomeRecord(g))
		}
		out = append(out, clone)
	}
	return out
}

// Evolve runs one generational replacement step. Genomes still missing
// fitness receive defaultFitness first, the completed generation is
// written to history, and the population is swapped for its children.
// On error nothing commits: the prior population, generation counter
// and history remain untouched.
func (m *Manager) Evolve(ctx context.Context, defaultFitness float64) (int, error) {
	current := make([]cppn.Genome, len(m.pop.Genomes))
	for i, g := range m.pop.Genomes {
		current[i] = g.Clone()
		if current[i].Fitness == nil {
			v := defaultFitness
			current[i].Fitness = &v
		}
	}
	if len(current) == 0 {
		return 0, errors.New("population is empty")
	}

	next := make([]cppn.Genome, 0, len(current))
	for range current {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		child, err := m.breed(ctx, current, defaultFitness)
		if err != nil {
			return 0, err
		}
		next = append(next, child)
	}

	m.recordGeneration(current)
	m.pop = Population{Generation: m.pop.Generation + 1, Genomes: next}
	return m.pop.Generation, nil
}

// breed produces one child slot. Construction failures fall back to an
// unmutated parent clone; only context cancellation escapes as an
// error.
func (m *Manager) breed(ctx context.Context, current []cppn.Genome, defaultFitness float64) (cppn.Genome, error) {
	p1, p2 := m.selectParents(current, defaultFitness)

	child := p1.Clone()
	parent1ID := p1.ID
	var parent2ID *int
	if p2 != nil && p2.ID != p1.ID && m.rng.Float64() < m.params.CrossoverRate {
		if bred, err := m.crossover.Child(p1, *p2); err == nil {
			child = bred
			v := p2.ID
			parent2ID = &v
		} else if fitnessValue(*p2) > fitnessValue(p1) {
			child = p2.Clone()
			parent1ID = p2.ID
		}
	}

	mutated, err := m.pipeline.Mutate(ctx, child)
	if err != nil {
		if ctx.Err() != nil {
			return cppn.Genome{}, err
		}
		mutated = child
	}

	mutated.ID = m.innovations.NextGenomeID()
	mutated.Parent1 = &parent1ID
	mutated.Parent2 = parent2ID
	mutated.Fitness = nil
	mutated.Normalize()
	return mutated, nil
}

// selectParents picks the first parent uniformly from the genomes tied
// at maximum fitness and the mate fitness-proportionately from the
// positive-fitness pool. When every fitness sits at the default there
// is nothing to steer by and both picks are uniform.
func (m *Manager) selectParents(current []cppn.Genome, defaultFitness float64) (cppn.Genome, *cppn.Genome) {
	steered := false
	for _, g := range current {
		if fitnessValue(g) != defaultFitness {
			steered = true
			break
		}
	}
	if !steered {
		p1 := current[m.rng.Intn(len(current))]
		p2 := current[m.rng.Intn(len(current))]
		return p1, &p2
	}

	best := fitnessValue(current[0])
	for _, g := range current[1:] {
		if f := fitnessValue(g); f > best {
			best = f
		}
	}
	elites := make([]int, 0, len(current))
	for i, g := range current {
		if fitnessValue(g) == best {
			elites = append(elites, i)
		}
	}
	p1 := current[elites[m.rng.Intn(len(elites))]]
	return p1, m.proportionate(current)
}

// proportionate spins a fitness-weighted wheel over the genomes with
// positive fitness. Nil means no candidate exists.
func (m *Manager) proportionate(current []cppn.Genome) *cppn.Genome {
	total := 0.0
	for _, g := range current {
		if f := fitnessValue(g); f > 0 {
			total += f
		}
	}
	if total <= 0 {
		return nil
	}

	pick := m.rng.Float64() * total
	acc := 0.0
	for i := range current {
		f := fitnessValue(current[i])
		if f <= 0 {
			continue
		}
		acc += f
		if pick <= acc {
			mate := current[i]
			return &mate
		}
	}
	return nil
}

// recordGeneration captures the completed generation. A record per
// generation number is written at most once; re-recording the same
// number replaces the entry instead of duplicating it.
func (m *Manager) recordGeneration(current []cppn.Genome) {
	rec := model.GenerationRecord{
		Generation: m.pop.Generation,
		Genomes:    make([]model.GenomeRecord, 0, len(current)),
	}
	for _, g := range current {
		entry := model.GenomeRecord{GenomeID: g.ID}
		if g.Parent1 != nil {
			v := *g.Parent1
			entry.Parent1 = &v
		}
		if g.Parent2 != nil {
			v := *g.Parent2
			entry.Parent2 = &v
		}
		if g.Fitness != nil {
			v := *g.Fitness
			entry.Fitness = &v
		}
		rec.Genomes = append(rec.Genomes, entry)
	}

	for i := range m.history {
		if m.history[i].Generation == rec.Generation {
			m.history[i] = rec
			return
		}
	}
	m.history = append(m.history, rec)
}

func cloneGenomeRecord(r model.GenomeRecord) model.GenomeRecord {
	out := model.GenomeRecord{GenomeID: r.GenomeID}
	if r.Parent1 != nil {
		v := *r.Parent1
		out.Parent1 = &v
	}
	if r.Parent2 != nil {
		v := *r.Parent2
		out.Parent2 = &v
	}
	if r.Fitness != nil {
		v := *r.Fitness
		out.Fitness = &v
	}
	return out
}
