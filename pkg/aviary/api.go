// Package aviary is the public facade over the drone show evolution
// engine: session lifecycle, pattern decoding, fitness assignment,
// constraint checking and the gallery archive.
package aviary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aviary/internal/config"
	"aviary/internal/constraint"
	"aviary/internal/cppn"
	"aviary/internal/evo"
	"aviary/internal/model"
	"aviary/internal/platform"
	"aviary/internal/session"
	"aviary/internal/storage"
)

const (
	// DefaultDuration is the animation length in seconds used when a
	// request does not name one.
	DefaultDuration = 3.0
	// MaxDuration caps requested animation lengths.
	MaxDuration = 60.0

	defaultDBPath = "gallery.db"
)

// NotFound sentinels, re-exported so callers can classify failures with
// errors.Is without importing internal packages.
var (
	ErrSessionNotFound = session.ErrNotFound
	ErrGenomeNotFound  = evo.ErrGenomeNotFound
	ErrGalleryNotFound = storage.ErrNotFound
)

// ErrNotInitialized is returned when a method runs before Init or
// after Close.
var ErrNotInitialized = errors.New("service is not initialized")

// Options configures a Service. Zero values select the build's default
// store backend, the default gallery path and the built-in engine
// profile.
type Options struct {
	StoreKind     string
	DBPath        string
	Profile       config.Profile
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// Service exposes the public operations. Construct with New, call Init
// before use and Close when done.
type Service struct {
	sup *platform.Supervisor
}

// SessionConfig seeds a new session. Zero values fall back to the
// engine profile's population size and the default drone count.
type SessionConfig struct {
	NumDrones      int
	PopulationSize int
	Seed           int64
}

// SessionInfo describes a session after creation.
type SessionInfo struct {
	SessionID      string `json:"session_id"`
	Generation     int    `json:"generation"`
	PopulationSize int    `json:"population_size"`
	NumDrones      int    `json:"num_drones"`
}

// GenomesInfo lists the current generation.
type GenomesInfo struct {
	GenomeIDs      []int `json:"genome_ids"`
	Generation     int   `json:"generation"`
	PopulationSize int   `json:"population_size"`
}

// StatusInfo summarizes one session.
type StatusInfo struct {
	SessionID      string              `json:"session_id"`
	Generation     int                 `json:"generation"`
	PopulationSize int                 `json:"population_size"`
	NumDrones      int                 `json:"num_drones"`
	Fitness        model.FitnessStatus `json:"fitness_status"`
}

// ConstraintsRequest selects what to check. A nil GenomeID checks the
// whole population; a zero Duration uses DefaultDuration.
type ConstraintsRequest struct {
	SessionID string
	GenomeID  *int
	Duration  float64
}

// ConstraintsInfo is a constraint report plus the genome ids its
// results are ordered by.
type ConstraintsInfo struct {
	constraint.Report
	GenomeIDs []int `json:"genome_ids"`
}

// New builds a Service with its own supervisor and gallery store.
func New(opts Options) (*Service, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	sup := platform.NewSupervisor(platform.Config{
		Gallery:       store,
		Profile:       opts.Profile,
		SessionTTL:    opts.SessionTTL,
		SweepInterval: opts.SweepInterval,
	})
	return &Service{sup: sup}, nil
}

// NewWithSupervisor wraps an existing supervisor, such as the
// process-wide default.
func NewWithSupervisor(sup *platform.Supervisor) *Service {
	return &Service{sup: sup}
}

// Init starts the supervisor: gallery store, session registry, expiry
// sweeper.
func (s *Service) Init(ctx context.Context) error {
	return s.sup.Init(ctx)
}

// Close stops the supervisor and releases the gallery store.
func (s *Service) Close() error {
	return s.sup.Stop()
}

// CreateSession seeds a fresh population and returns its id.
func (s *Service) CreateSession(cfg SessionConfig) (SessionInfo, error) {
	store, err := s.sessions()
	if err != nil {
		return SessionInfo{}, err
	}
	profile := s.sup.Profile()
	popSize := cfg.PopulationSize
	if popSize == 0 {
		popSize = profile.Population.Size
	}
	sess, err := store.Create(session.Config{
		NumDrones:      cfg.NumDrones,
		PopulationSize: popSize,
		Seed:           cfg.Seed,
		TTL:            s.sup.SessionTTL(),
		Params:         profile.EvoParams(),
	})
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{
		SessionID:      sess.ID(),
		Generation:     sess.Generation(),
		PopulationSize: sess.PopulationSize(),
		NumDrones:      sess.NumDrones(),
	}, nil
}

// DeleteSession removes a session immediately.
func (s *Service) DeleteSession(sessionID string) error {
	store, err := s.sessions()
	if err != nil {
		return err
	}
	if !store.Delete(sessionID) {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return nil
}

// Genomes returns the ids of the current generation.
func (s *Service) Genomes(sessionID string) (GenomesInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return GenomesInfo{}, err
	}
	return GenomesInfo{
		GenomeIDs:      sess.GenomeIDs(),
		Generation:     sess.Generation(),
		PopulationSize: sess.PopulationSize(),
	}, nil
}

// Pattern decodes one genome into an animation.
func (s *Service) Pattern(sessionID string, genomeID int, duration float64) (model.Animation, error) {
	duration, err := normalizeDuration(duration)
	if err != nil {
		return model.Animation{}, err
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return model.Animation{}, err
	}
	g, err := sess.Genome(genomeID)
	if err != nil {
		return model.Animation{}, err
	}
	return s.sup.Profile().PhenotypeDecoder().Decode(g, sess.NumDrones(), duration)
}

// Structure returns the CPPN graph of one genome for display.
func (s *Service) Structure(sessionID string, genomeID int) (model.CPPNStructure, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return model.CPPNStructure{}, err
	}
	g, err := sess.Genome(genomeID)
	if err != nil {
		return model.CPPNStructure{}, err
	}
	return cppn.Structure(g), nil
}

// AssignFitness records the user's preference for one genome.
func (s *Service) AssignFitness(sessionID string, genomeID int, fitness float64) error {
	if fitness < 0 || fitness > 1 {
		return fmt.Errorf("fitness must be in [0, 1], got %v", fitness)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return sess.AssignFitness(genomeID, fitness)
}

// Evolve advances the session one generation. Genomes without an
// assigned fitness receive defaultFitness first.
func (s *Service) Evolve(ctx context.Context, sessionID string, defaultFitness float64) (int, error) {
	if defaultFitness < 0 || defaultFitness > 1 {
		return 0, fmt.Errorf("default fitness must be in [0, 1], got %v", defaultFitness)
	}
	sess, err := s.session(sessionID)
	if err != nil {
		return 0, err
	}
	return sess.Evolve(ctx, defaultFitness)
}

// History returns the lineage records of completed generations.
func (s *Service) History(sessionID string) ([]model.GenerationRecord, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.History(), nil
}

// Status reports a session's generation and fitness tallies.
func (s *Service) Status(sessionID string) (StatusInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return StatusInfo{}, err
	}
	return StatusInfo{
		SessionID:      sess.ID(),
		Generation:     sess.Generation(),
		PopulationSize: sess.PopulationSize(),
		NumDrones:      sess.NumDrones(),
		Fitness:        sess.FitnessStatus(),
	}, nil
}

// CheckConstraints decodes one genome or the whole population and runs
// the advisory safety checker over the result.
func (s *Service) CheckConstraints(req ConstraintsRequest) (ConstraintsInfo, error) {
	duration, err := normalizeDuration(req.Duration)
	if err != nil {
		return ConstraintsInfo{}, err
	}
	sess, err := s.session(req.SessionID)
	if err != nil {
		return ConstraintsInfo{}, err
	}
	profile := s.sup.Profile()
	checker, err := constraint.NewChecker(profile.ConstraintParams())
	if err != nil {
		return ConstraintsInfo{}, err
	}
	decoder := profile.PhenotypeDecoder()

	var ids []int
	var genomes []cppn.Genome
	if req.GenomeID != nil {
		g, err := sess.Genome(*req.GenomeID)
		if err != nil {
			return ConstraintsInfo{}, err
		}
		ids = []int{g.ID}
		genomes = []cppn.Genome{g}
	} else {
		genomes = sess.Genomes()
		ids = make([]int, 0, len(genomes))
		for _, g := range genomes {
			ids = append(ids, g.ID)
		}
	}

	anims := make([]model.Animation, 0, len(genomes))
	for _, g := range genomes {
		anim, err := decoder.Decode(g, sess.NumDrones(), duration)
		if err != nil {
			return ConstraintsInfo{}, fmt.Errorf("decode genome %d: %w", g.ID, err)
		}
		anims = append(anims, anim)
	}
	return ConstraintsInfo{Report: checker.CheckAll(anims), GenomeIDs: ids}, nil
}

// SaveAnimation archives an animation with its CPPN structure snapshot
// and returns the gallery id.
func (s *Service) SaveAnimation(ctx context.Context, animationData, cppnData json.RawMessage) (int64, error) {
	gallery, err := s.gallery()
	if err != nil {
		return 0, err
	}
	return gallery.SaveAnimation(ctx, model.GalleryEntry{
		AnimationData: animationData,
		CPPNData:      cppnData,
	})
}

// GalleryList pages through archived animations, newest first.
func (s *Service) GalleryList(ctx context.Context, offset, limit int) ([]model.GalleryListItem, error) {
	gallery, err := s.gallery()
	if err != nil {
		return nil, err
	}
	return gallery.ListAnimations(ctx, offset, limit)
}

// GalleryGet returns one archived animation with its payloads.
func (s *Service) GalleryGet(ctx context.Context, id int64) (model.GalleryEntry, error) {
	gallery, err := s.gallery()
	if err != nil {
		return model.GalleryEntry{}, err
	}
	return gallery.GetAnimation(ctx, id)
}

// GalleryDelete removes one archived animation.
func (s *Service) GalleryDelete(ctx context.Context, id int64) error {
	gallery, err := s.gallery()
	if err != nil {
		return err
	}
	return gallery.DeleteAnimation(ctx, id)
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() (int, error) {
	store, err := s.sessions()
	if err != nil {
		return 0, err
	}
	return store.Count(), nil
}

func (s *Service) sessions() (*session.Store, error) {
	if !s.sup.Started() {
		return nil, ErrNotInitialized
	}
	return s.sup.Sessions(), nil
}

func (s *Service) session(id string) (*session.Session, error) {
	store, err := s.sessions()
	if err != nil {
		return nil, err
	}
	return store.Get(id)
}

func (s *Service) gallery() (storage.Store, error) {
	if !s.sup.Started() {
		return nil, ErrNotInitialized
	}
	return s.sup.Gallery(), nil
}

func normalizeDuration(duration float64) (float64, error) {
	if duration == 0 {
		return DefaultDuration, nil
	}
	if duration < 0 || duration > MaxDuration {
		return 0, fmt.Errorf("duration must be in (0, %g] seconds, got %g", MaxDuration, duration)
	}
	return duration, nil
}
