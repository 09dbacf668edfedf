package storage

import "testing"

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore("memory", "")
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("got %T, want *MemoryStore", store)
	}
}

func TestNewStoreEmptyKindUsesBuildDefault(t *testing.T) {
	store, err := NewStore("", "")
	if err != nil {
		t.Fatalf("new default store: %v", err)
	}
	if store == nil {
		t.Fatal("expected non-nil store")
	}
	if DefaultStoreKind() == "memory" {
		if _, ok := store.(*MemoryStore); !ok {
			t.Fatalf("got %T, want *MemoryStore", store)
		}
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	if _, err := NewStore("unknown", ""); err == nil {
		t.Fatal("expected unsupported store error")
	}
}
