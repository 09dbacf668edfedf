// Package storage archives saved animations together with the genome
// structure that produced them.
package storage

import (
	"context"
	"errors"

	"aviary/internal/model"
)

// ErrNotFound reports an unknown gallery id.
var ErrNotFound = errors.New("gallery entry not found")

// DefaultListLimit is the page size used when a listing asks for none.
const DefaultListLimit = 50

// Store is the gallery archive. Implementations are safe for concurrent
// use; Init must run once before anything else. Listing is newest first,
// ids breaking timestamp ties.
type Store interface {
	Init(ctx context.Context) error
	SaveAnimation(ctx context.Context, entry model.GalleryEntry) (int64, error)
	ListAnimations(ctx context.Context, offset, limit int) ([]model.GalleryListItem, error)
	GetAnimation(ctx context.Context, id int64) (model.GalleryEntry, error)
	DeleteAnimation(ctx context.Context, id int64) error
	Close() error
}

// clampPage normalizes paging arguments the same way for every backend.
func clampPage(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return offset, limit
}
