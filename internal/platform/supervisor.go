package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aviary/internal/config"
	"aviary/internal/session"
	"aviary/internal/storage"
)

// Config wires the supervisor. A zero Profile selects the built-in
// engine defaults; zero durations select DefaultTTL and
// DefaultSweepInterval.
type Config struct {
	Gallery       storage.Store
	Profile       config.Profile
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// Supervisor owns the long-lived state of a running engine: the session
// registry, the gallery archive and the expiry sweeper. Construct with
// NewSupervisor, then Init before use.
type Supervisor struct {
	gallery storage.Store
	config  Config

	mu       sync.RWMutex
	sessions *session.Store
	sweeper  *Sweeper
	started  bool
}

var (
	defaultSupervisorMu sync.Mutex
	defaultSupervisor   *Supervisor
)

func NewSupervisor(cfg Config) *Supervisor {
	if cfg.Profile == (config.Profile{}) {
		cfg.Profile = config.DefaultProfile()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	return &Supervisor{
		gallery: cfg.Gallery,
		config:  cfg,
	}
}

// StartDefault initializes the process-wide supervisor, reusing a
// running one.
func StartDefault(ctx context.Context, cfg Config) (*Supervisor, error) {
	defaultSupervisorMu.Lock()
	defer defaultSupervisorMu.Unlock()

	if defaultSupervisor != nil && defaultSupervisor.Started() {
		return defaultSupervisor, nil
	}

	s := NewSupervisor(cfg)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	defaultSupervisor = s
	return defaultSupervisor, nil
}

// Default returns the process-wide supervisor if one is running.
func Default() (*Supervisor, bool) {
	defaultSupervisorMu.Lock()
	s := defaultSupervisor
	defaultSupervisorMu.Unlock()

	if s == nil || !s.Started() {
		return nil, false
	}
	return s, true
}

// StopDefault stops and clears the process-wide supervisor.
func StopDefault() error {
	defaultSupervisorMu.Lock()
	s := defaultSupervisor
	defaultSupervisorMu.Unlock()
	if s == nil {
		return nil
	}
	if err := s.Stop(); err != nil {
		return err
	}
	defaultSupervisorMu.Lock()
	if defaultSupervisor == s {
		defaultSupervisor = nil
	}
	defaultSupervisorMu.Unlock()
	return nil
}

// Init validates the configuration, opens the gallery store and starts
// the expiry sweeper. Calling Init on a started supervisor is a no-op.
func (s *Supervisor) Init(ctx context.Context) error {
	if s.gallery == nil {
		return fmt.Errorf("gallery store is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if err := s.config.Profile.Validate(); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	if err := s.gallery.Init(ctx); err != nil {
		return fmt.Errorf("init gallery store: %w", err)
	}

	s.sessions = session.NewStore()
	s.sweeper = NewSweeper(s.sessions, s.config.SweepInterval)
	if err := s.sweeper.Start(); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	s.started = true
	return nil
}

// Stop halts the sweeper and closes the gallery store. Live sessions
// are discarded; saved gallery entries persist per backend.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	s.sweeper.Stop()
	s.started = false
	if err := s.gallery.Close(); err != nil {
		return fmt.Errorf("close gallery store: %w", err)
	}
	return nil
}

func (s *Supervisor) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Sessions returns the session registry. Valid after Init.
func (s *Supervisor) Sessions() *session.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions
}

// Gallery returns the animation archive.
func (s *Supervisor) Gallery() storage.Store {
	return s.gallery
}

// Profile returns the engine profile sessions are created with.
func (s *Supervisor) Profile() config.Profile {
	return s.config.Profile
}

// SessionTTL returns the idle lifetime applied to new sessions.
func (s *Supervisor) SessionTTL() time.Duration {
	return s.config.SessionTTL
}

// SweeperStats reports the expiry sweeper's progress.
func (s *Supervisor) SweeperStats() SweeperStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sweeper == nil {
		return SweeperStats{}
	}
	return s.sweeper.Stats()
}
