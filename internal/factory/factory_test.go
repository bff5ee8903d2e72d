package factory

import (
	"context"
	"strings"
	"testing"

	"go-motion-inspector/internal/config"
	"go-motion-inspector/internal/storage"
)

func TestStorageFactory_Memory(t *testing.T) {
	f := NewStorageFactory(config.Defaults())

	store, err := f.CreateStorage(context.Background(), MemoryStorage)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*storage.MemorySlotStore); !ok {
		t.Errorf("Expected *storage.MemorySlotStore, got %T", store)
	}
}

func TestStorageFactory_SQLite(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoragePath = t.TempDir()
	f := NewStorageFactory(cfg)

	store, err := f.CreateStorage(context.Background(), SQLiteStorage)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer store.Close()

	sqliteStore, ok := store.(*storage.SQLiteSlotStore)
	if !ok {
		t.Fatalf("Expected *storage.SQLiteSlotStore, got %T", store)
	}
	if !strings.HasPrefix(sqliteStore.Path(), cfg.StoragePath) {
		t.Errorf("Expected the database under %s, got %s", cfg.StoragePath, sqliteStore.Path())
	}
}

func TestStorageFactory_Unsupported(t *testing.T) {
	f := NewStorageFactory(config.Defaults())

	if _, err := f.CreateStorage(context.Background(), StorageType("local")); err == nil {
		t.Error("Expected unsupported storage type to fail")
	}
}
