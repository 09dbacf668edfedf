package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"aviary/internal/evo"
)

// ErrNotFound reports an unknown or already expired session id.
var ErrNotFound = errors.New("session not found")

// Store is the in-memory session registry. Get refreshes the idle timer;
// Exists and Count observe without touching it.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	lastAccess map[string]time.Time
	now        func() time.Time
}

// NewStore returns an empty registry.
func NewStore() *Store {
	return &Store{
		sessions:   make(map[string]*Session),
		lastAccess: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Create seeds a fresh population and registers it under a new id.
func (st *Store) Create(cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	manager, err := evo.NewManager(evo.ManagerConfig{
		PopulationSize: cfg.PopulationSize,
		Seed:           cfg.Seed,
		Params:         cfg.Params,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		manager: manager,
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.id] = s
	st.lastAccess[s.id] = st.now()
	return s, nil
}

// Get returns the session and marks it as just used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	st.lastAccess[id] = st.now()
	return s, nil
}

// Delete removes the session and reports whether it was present.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	delete(st.lastAccess, id)
	return true
}

// CleanupExpired drops every session idle for longer than its ttl and
// returns how many were dropped.
func (st *Store) CleanupExpired() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	dropped := 0
	for id, s := range st.sessions {
		if now.Sub(st.lastAccess[id]) > s.cfg.TTL {
			delete(st.sessions, id)
			delete(st.lastAccess, id)
			dropped++
		}
	}
	return dropped
}

// Count returns the number of live sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Exists reports whether the id is registered, without touching its
// idle timer.
func (st *Store) Exists(id string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.sessions[id]
	return ok
}
