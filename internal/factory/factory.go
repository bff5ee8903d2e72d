package factory

import (
	"context"
	"fmt"

	"go-motion-inspector/internal/config"
	"go-motion-inspector/internal/logger"
	"go-motion-inspector/internal/storage"
)

// StorageType represents different types of slot storage backends
type StorageType string

const (
	// MemoryStorage keeps slots in process memory
	MemoryStorage StorageType = config.StorageMemory
	// SQLiteStorage keeps slots in a local SQLite file
	SQLiteStorage StorageType = config.StorageSQLite
	// AzureStorage keeps slots as Azure blobs
	AzureStorage StorageType = config.StorageAzure
)

// StorageFactory creates slot store implementations
type StorageFactory interface {
	CreateStorage(ctx context.Context, storageType StorageType) (storage.SlotStore, error)
}

// storageFactory implements StorageFactory from configuration
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(ctx context.Context, storageType StorageType) (storage.SlotStore, error) {
	switch storageType {
	case MemoryStorage:
		return storage.NewMemorySlotStore(), nil
	case SQLiteStorage:
		store, err := storage.OpenSQLiteSlotStore(f.cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", store.Path()).Info("Opened sqlite slot store")
		return store, nil
	case AzureStorage:
		store, err := storage.NewAzureSlotStore(ctx, f.cfg.AzureAccountName, f.cfg.AzureAccountKey, f.cfg.AzureContainer)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
