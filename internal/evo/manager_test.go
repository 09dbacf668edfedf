package evo

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"aviary/internal/cppn"
	"aviary/internal/model"
)

func testManager(t *testing.T, cfg ManagerConfig) *Manager {
	t.Helper()
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestNewManagerSeedsMinimalPopulation(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 1})

	if m.Generation() != 0 {
		t.Fatalf("generation = %d, want 0", m.Generation())
	}
	if m.PopulationSize() != DefaultPopulationSize {
		t.Fatalf("population size = %d, want %d", m.PopulationSize(), DefaultPopulationSize)
	}
	wantIDs := make([]int, DefaultPopulationSize)
	for i := range wantIDs {
		wantIDs[i] = i
	}
	if got := m.GenomeIDs(); !reflect.DeepEqual(got, wantIDs) {
		t.Fatalf("genome ids = %v, want %v", got, wantIDs)
	}

	for _, g := range m.Genomes() {
		if err := cppn.Validate(g); err != nil {
			t.Fatalf("seed genome %d invalid: %v", g.ID, err)
		}
		if len(g.Nodes) != cppn.NumInputs+cppn.NumOutputs {
			t.Fatalf("seed genome %d has %d nodes", g.ID, len(g.Nodes))
		}
		if len(g.Connections) != cppn.NumInputs*cppn.NumOutputs {
			t.Fatalf("seed genome %d has %d connections", g.ID, len(g.Connections))
		}
		if g.EnabledConnections() != len(g.Connections) {
			t.Fatalf("seed genome %d has disabled connections", g.ID)
		}
		if g.Fitness != nil || g.Parent1 != nil || g.Parent2 != nil {
			t.Fatalf("seed genome %d carries fitness or lineage", g.ID)
		}
		for _, c := range g.Connections {
			if math.Abs(c.Weight) > 1 {
				t.Fatalf("seed weight %v outside [-1, 1]", c.Weight)
			}
		}
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	if _, err := NewManager(ManagerConfig{PopulationSize: -3}); err == nil {
		t.Fatal("expected error for negative population size")
	}
	bad := DefaultParams()
	bad.AddNodeRate = 9
	if _, err := NewManager(ManagerConfig{Params: bad}); err == nil {
		t.Fatal("expected error for invalid params")
	}
}

func TestManagerIsDeterministicBySeed(t *testing.T) {
	a := testManager(t, ManagerConfig{Seed: 7})
	b := testManager(t, ManagerConfig{Seed: 7})

	if !reflect.DeepEqual(a.Genomes(), b.Genomes()) {
		t.Fatal("same seed produced different seed populations")
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := a.Evolve(ctx, 0); err != nil {
			t.Fatalf("evolve a: %v", err)
		}
		if _, err := b.Evolve(ctx, 0); err != nil {
			t.Fatalf("evolve b: %v", err)
		}
	}
	if !reflect.DeepEqual(a.Genomes(), b.Genomes()) {
		t.Fatal("same seed diverged after evolving")
	}
	if !reflect.DeepEqual(a.History(), b.History()) {
		t.Fatal("same seed produced different histories")
	}
}

func TestAssignFitnessOverwrites(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 2})

	if err := m.AssignFitness(0, 0.4); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := m.AssignFitness(0, 0.9); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	g, err := m.Genome(0)
	if err != nil {
		t.Fatalf("genome: %v", err)
	}
	if g.Fitness == nil || *g.Fitness != 0.9 {
		t.Fatalf("fitness = %v, want 0.9", g.Fitness)
	}

	if err := m.AssignFitness(999, 0.5); !errors.Is(err, ErrGenomeNotFound) {
		t.Fatalf("got %v, want ErrGenomeNotFound", err)
	}
	if _, err := m.Genome(999); !errors.Is(err, ErrGenomeNotFound) {
		t.Fatalf("got %v, want ErrGenomeNotFound", err)
	}
}

func TestFitnessStatusCounts(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 3})

	want := model.FitnessStatus{Total: 12, Assigned: 0, Unassigned: 12}
	if got := m.FitnessStatus(); got != want {
		t.Fatalf("status = %+v, want %+v", got, want)
	}

	for _, id := range []int{1, 4, 7} {
		if err := m.AssignFitness(id, 0.5); err != nil {
			t.Fatalf("assign %d: %v", id, err)
		}
	}
	want = model.FitnessStatus{Total: 12, Assigned: 3, Unassigned: 9}
	if got := m.FitnessStatus(); got != want {
		t.Fatalf("status = %+v, want %+v", got, want)
	}
}

func TestEvolveAdvancesGenerationAndHistory(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 4})
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		gen, err := m.Evolve(ctx, 0)
		if err != nil {
			t.Fatalf("evolve: %v", err)
		}
		if gen != want {
			t.Fatalf("evolve returned generation %d, want %d", gen, want)
		}
		if m.Generation() != want {
			t.Fatalf("generation = %d, want %d", m.Generation(), want)
		}
		if m.PopulationSize() != 12 {
			t.Fatalf("population size changed to %d", m.PopulationSize())
		}
	}

	history := m.History()
	if len(history) != 3 {
		t.Fatalf("history has %d records, want 3", len(history))
	}
	for i, rec := range history {
		if rec.Generation != i {
			t.Fatalf("record %d labelled generation %d", i, rec.Generation)
		}
		if len(rec.Genomes) != 12 {
			t.Fatalf("record %d holds %d genomes, want 12", i, len(rec.Genomes))
		}
		for _, g := range rec.Genomes {
			if g.Fitness == nil {
				t.Fatalf("record %d genome %d missing fitness", i, g.GenomeID)
			}
		}
	}
}

func TestEvolveFillsDefaultFitness(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 5})
	if err := m.AssignFitness(3, 0.9); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := m.Evolve(context.Background(), 0.25); err != nil {
		t.Fatalf("evolve: %v", err)
	}

	rec := m.History()[0]
	for _, g := range rec.Genomes {
		want := 0.25
		if g.GenomeID == 3 {
			want = 0.9
		}
		if g.Fitness == nil || *g.Fitness != want {
			t.Fatalf("genome %d recorded fitness %v, want %v", g.GenomeID, g.Fitness, want)
		}
	}
}

func TestEvolveGenomeIDsAdvance(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 6})
	ctx := context.Background()

	prev := m.GenomeIDs()
	for round := 0; round < 3; round++ {
		if _, err := m.Evolve(ctx, 0); err != nil {
			t.Fatalf("evolve: %v", err)
		}
		ids := m.GenomeIDs()
		if len(ids) != len(prev) {
			t.Fatalf("population size changed: %d -> %d", len(prev), len(ids))
		}
		maxPrev := prev[len(prev)-1]
		for _, id := range ids {
			if id <= maxPrev {
				t.Fatalf("child id %d not above previous maximum %d", id, maxPrev)
			}
		}
		prev = ids
	}
}

func TestEvolveParentAttribution(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 11})
	if err := m.AssignFitness(0, 1.0); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := m.Evolve(context.Background(), 0); err != nil {
		t.Fatalf("evolve: %v", err)
	}

	for _, g := range m.Genomes() {
		if g.Parent1 == nil || *g.Parent1 != 0 {
			t.Fatalf("child %d parent1 = %v, want the sole elite 0", g.ID, g.Parent1)
		}
		if g.Parent2 != nil {
			t.Fatalf("child %d has parent2 %d despite a single positive genome", g.ID, *g.Parent2)
		}
		if g.Fitness != nil {
			t.Fatalf("child %d born with fitness", g.ID)
		}
	}
}

func TestEvolveUniformSelectionWhenAllDefault(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 12})
	ctx := context.Background()

	if _, err := m.Evolve(ctx, 0); err != nil {
		t.Fatalf("evolve: %v", err)
	}
	parents := map[int]bool{}
	for _, g := range m.Genomes() {
		if g.Parent1 == nil {
			t.Fatalf("child %d missing parent1", g.ID)
		}
		parents[*g.Parent1] = true
	}
	if len(parents) < 2 {
		t.Fatalf("uniform selection picked a single parent for all %d children", m.PopulationSize())
	}

	crossed := false
	for round := 0; round < 3 && !crossed; round++ {
		if _, err := m.Evolve(ctx, 0); err != nil {
			t.Fatalf("evolve: %v", err)
		}
		for _, g := range m.Genomes() {
			if g.Parent2 != nil {
				crossed = true
				if *g.Parent2 == *g.Parent1 {
					t.Fatalf("child %d lists the same genome as both parents", g.ID)
				}
			}
		}
	}
	if !crossed {
		t.Fatal("no crossover happened across four generations at rate 0.6")
	}
}

func TestEvolveDoesNotCommitOnCancel(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 13})
	before := m.Genomes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Evolve(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}

	if m.Generation() != 0 {
		t.Fatalf("generation advanced to %d after cancelled evolve", m.Generation())
	}
	if len(m.History()) != 0 {
		t.Fatal("cancelled evolve wrote history")
	}
	if !reflect.DeepEqual(m.Genomes(), before) {
		t.Fatal("cancelled evolve replaced the population")
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	m := testManager(t, ManagerConfig{Seed: 14})
	ctx := context.Background()

	g, err := m.Genome(0)
	if err != nil {
		t.Fatalf("genome: %v", err)
	}
	g.Nodes[0].Bias = 99
	g.Connections[0].Weight = 99
	fresh, err := m.Genome(0)
	if err != nil {
		t.Fatalf("genome: %v", err)
	}
	if fresh.Nodes[0].Bias == 99 || fresh.Connections[0].Weight == 99 {
		t.Fatal("Genome returned shared state")
	}

	all := m.Genomes()
	all[1].Connections[0].Weight = 42
	if m.Genomes()[1].Connections[0].Weight == 42 {
		t.Fatal("Genomes returned shared state")
	}

	if _, err := m.Evolve(ctx, 0.5); err != nil {
		t.Fatalf("evolve: %v", err)
	}
	hist := m.History()
	*hist[0].Genomes[0].Fitness = 77
	if *m.History()[0].Genomes[0].Fitness == 77 {
		t.Fatal("History returned shared state")
	}
}
