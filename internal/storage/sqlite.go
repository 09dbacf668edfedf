//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"aviary/internal/model"
)

// sqliteTimeFormat matches what CURRENT_TIMESTAMP writes, so rows
// created outside this process list and scan identically.
const sqliteTimeFormat = "2006-01-02 15:04:05"

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveAnimation(ctx context.Context, entry model.GalleryEntry) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	if err := ValidatePayload(entry.AnimationData); err != nil {
		return 0, fmt.Errorf("animation payload: %w", err)
	}
	if err := ValidatePayload(entry.CPPNData); err != nil {
		return 0, fmt.Errorf("cppn payload: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO saved_animations (animation_data, cppn_data, created_at)
		VALUES (?, ?, ?)
	`, string(entry.AnimationData), string(entry.CPPNData), time.Now().UTC().Format(sqliteTimeFormat))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) ListAnimations(ctx context.Context, offset, limit int) ([]model.GalleryListItem, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	offset, limit = clampPage(offset, limit)

	rows, err := db.QueryContext(ctx, `
		SELECT id, created_at
		FROM saved_animations
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.GalleryListItem, 0, limit)
	for rows.Next() {
		var (
			id      int64
			created string
		)
		if err := rows.Scan(&id, &created); err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(sqliteTimeFormat, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at of entry %d: %w", id, err)
		}
		items = append(items, model.GalleryListItem{ID: id, CreatedAt: createdAt})
	}
	return items, rows.Err()
}

func (s *SQLiteStore) GetAnimation(ctx context.Context, id int64) (model.GalleryEntry, error) {
	db, err := s.getDB()
	if err != nil {
		return model.GalleryEntry{}, err
	}

	var (
		animation string
		cppn      string
		created   string
	)
	err = db.QueryRowContext(ctx, `
		SELECT animation_data, cppn_data, created_at
		FROM saved_animations
		WHERE id = ?
	`, id).Scan(&animation, &cppn, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.GalleryEntry{}, fmt.Errorf("gallery entry %d: %w", id, ErrNotFound)
		}
		return model.GalleryEntry{}, err
	}

	createdAt, err := time.Parse(sqliteTimeFormat, created)
	if err != nil {
		return model.GalleryEntry{}, fmt.Errorf("parse created_at of entry %d: %w", id, err)
	}
	return model.GalleryEntry{
		ID:            id,
		AnimationData: json.RawMessage(animation),
		CPPNData:      json.RawMessage(cppn),
		CreatedAt:     createdAt,
	}, nil
}

func (s *SQLiteStore) DeleteAnimation(ctx context.Context, id int64) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM saved_animations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("gallery entry %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS saved_animations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			animation_data TEXT NOT NULL,
			cppn_data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

// DefaultStoreKind reports the backend this build prefers.
func DefaultStoreKind() string {
	return "sqlite"
}
