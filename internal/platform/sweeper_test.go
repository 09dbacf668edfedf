package platform

import (
	"sync/atomic"
	"testing"
	"time"

	"aviary/internal/session"
)

func TestSweeperRemovesExpiredSessions(t *testing.T) {
	store := session.NewStore()
	if _, err := store.Create(session.Config{TTL: time.Millisecond}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := store.Create(session.Config{TTL: time.Hour}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	var removed atomic.Int32
	sweeper := NewSweeperWithHooks(store, 5*time.Millisecond, SweeperHooks{
		OnSweep: func(n int) { removed.Add(int32(n)) },
	})
	if err := sweeper.Start(); err != nil {
		t.Fatalf("start sweeper: %v", err)
	}
	defer sweeper.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Count() == 1 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if got := store.Count(); got != 1 {
		t.Fatalf("expected sweeper to leave 1 live session, got=%d", got)
	}
	if got := removed.Load(); got != 1 {
		t.Fatalf("expected 1 removal reported to hook, got=%d", got)
	}
	stats := sweeper.Stats()
	if stats.Removed != 1 {
		t.Fatalf("expected stats to count 1 removal, got=%+v", stats)
	}
	if stats.Sweeps < 1 {
		t.Fatalf("expected at least one completed sweep, got=%+v", stats)
	}
}

func TestSweeperStartStop(t *testing.T) {
	sweeper := NewSweeper(session.NewStore(), time.Millisecond)
	if sweeper.Running() {
		t.Fatal("expected new sweeper to be idle")
	}
	if err := sweeper.Start(); err != nil {
		t.Fatalf("start sweeper: %v", err)
	}
	if !sweeper.Running() {
		t.Fatal("expected sweeper to be running after start")
	}
	if err := sweeper.Start(); err == nil {
		t.Fatal("expected second start to fail while running")
	}
	sweeper.Stop()
	if sweeper.Running() {
		t.Fatal("expected sweeper to be idle after stop")
	}
	sweeper.Stop()

	if err := sweeper.Start(); err != nil {
		t.Fatalf("restart sweeper: %v", err)
	}
	sweeper.Stop()
}

func TestSweeperRequiresStore(t *testing.T) {
	sweeper := NewSweeper(nil, time.Millisecond)
	if err := sweeper.Start(); err == nil {
		t.Fatal("expected start without store to fail")
	}
}

func TestSweeperDefaultsInterval(t *testing.T) {
	sweeper := NewSweeper(session.NewStore(), 0)
	if sweeper.interval != DefaultSweepInterval {
		t.Fatalf("expected default interval %v, got=%v", DefaultSweepInterval, sweeper.interval)
	}
}
