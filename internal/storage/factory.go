package storage

import "fmt"

// NewStore picks a backend by name. An empty kind selects the build's
// default backend.
func NewStore(kind, sqlitePath string) (Store, error) {
	if kind == "" {
		kind = DefaultStoreKind()
	}
	switch kind {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}
