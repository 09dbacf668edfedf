package platform

import (
	"context"
	"errors"
	"sync"
	"time"

	"aviary/internal/session"
)

// DefaultSweepInterval is how often idle sessions are collected when no
// interval is configured.
const DefaultSweepInterval = time.Minute

// SweeperStats is a snapshot of the sweeper's work so far.
type SweeperStats struct {
	Sweeps  int `json:"sweeps"`
	Removed int `json:"removed"`
}

// SweeperHooks are optional callbacks fired from the sweep loop.
type SweeperHooks struct {
	OnSweep func(removed int)
}

// Sweeper periodically drops expired sessions from a store. Start and
// Stop may be called from any goroutine; Stop waits for the loop to
// exit.
type Sweeper struct {
	store    *session.Store
	interval time.Duration
	hooks    SweeperHooks

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	sweeps  int
	removed int
}

func NewSweeper(store *session.Store, interval time.Duration) *Sweeper {
	return NewSweeperWithHooks(store, interval, SweeperHooks{})
}

func NewSweeperWithHooks(store *session.Store, interval time.Duration, hooks SweeperHooks) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		hooks:    hooks,
	}
}

// Start launches the sweep loop.
func (w *Sweeper) Start() error {
	if w.store == nil {
		return errors.New("session store is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return errors.New("sweeper already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for it to finish. Stopping a sweeper
// that is not running is a no-op.
func (w *Sweeper) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.done = nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the sweep loop is active.
func (w *Sweeper) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Stats returns the pass and removal counters.
func (w *Sweeper) Stats() SweeperStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return SweeperStats{Sweeps: w.sweeps, Removed: w.removed}
}

func (w *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := w.store.CleanupExpired()
			w.mu.Lock()
			w.sweeps++
			w.removed += removed
			w.mu.Unlock()
			if w.hooks.OnSweep != nil && removed > 0 {
				w.hooks.OnSweep(removed)
			}
		}
	}
}
