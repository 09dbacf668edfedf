package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"aviary/internal/model"
)

// MemoryStore keeps the gallery in process memory. Ids are assigned in
// insertion order so newest-first listing matches the sqlite backend.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]model.GalleryEntry
	nextID  int64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[int64]model.GalleryEntry)
	s.nextID = 0
	return nil
}

func (s *MemoryStore) SaveAnimation(_ context.Context, entry model.GalleryEntry) (int64, error) {
	if err := ValidatePayload(entry.AnimationData); err != nil {
		return 0, fmt.Errorf("animation payload: %w", err)
	}
	if err := ValidatePayload(entry.CPPNData); err != nil {
		return 0, fmt.Errorf("cppn payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		return 0, errors.New("store is not initialized")
	}

	s.nextID++
	entry.ID = s.nextID
	entry.CreatedAt = s.now().UTC()
	s.entries[entry.ID] = cloneEntry(entry)
	return entry.ID, nil
}

func (s *MemoryStore) ListAnimations(_ context.Context, offset, limit int) ([]model.GalleryListItem, error) {
	offset, limit = clampPage(offset, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entries == nil {
		return nil, errors.New("store is not initialized")
	}

	items := make([]model.GalleryListItem, 0, len(s.entries))
	for _, entry := range s.entries {
		items = append(items, model.GalleryListItem{ID: entry.ID, CreatedAt: entry.CreatedAt})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})

	if offset >= len(items) {
		return []model.GalleryListItem{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

func (s *MemoryStore) GetAnimation(_ context.Context, id int64) (model.GalleryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entries == nil {
		return model.GalleryEntry{}, errors.New("store is not initialized")
	}

	entry, ok := s.entries[id]
	if !ok {
		return model.GalleryEntry{}, fmt.Errorf("gallery entry %d: %w", id, ErrNotFound)
	}
	return cloneEntry(entry), nil
}

func (s *MemoryStore) DeleteAnimation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		return errors.New("store is not initialized")
	}

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("gallery entry %d: %w", id, ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func cloneEntry(entry model.GalleryEntry) model.GalleryEntry {
	entry.AnimationData = append([]byte(nil), entry.AnimationData...)
	entry.CPPNData = append([]byte(nil), entry.CPPNData...)
	return entry
}
