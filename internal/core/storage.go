package core

import (
	"fmt"

	"sizes/internal/config"
	"sizes/internal/infra/persistence/memory"
	"sizes/internal/infra/persistence/sqlite"
	"sizes/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory StorageDriver = "memory" // in-memory only (tests / ephemeral)
	StorageSQLite StorageDriver = "sqlite" // embedded sqlite file
)

// Backend is what the service and preferences need from storage.
type Backend interface {
	domain.PersistentStore
	domain.PreferenceStore
}

var (
	_ Backend = (*memory.Store)(nil)
	_ Backend = (*sqlite.Store)(nil)
)

// OpenPersistentStore selects a backend from cfg. The returned close
// function releases any handles and is never nil.
func OpenPersistentStore(cfg config.StorageConfig, engine *domain.RulesEngine, opts ...memory.Option) (Backend, func() error, error) {
	switch StorageDriver(cfg.Driver) {
	case StorageMemory:
		return memory.NewStore(engine, opts...), func() error { return nil }, nil
	case StorageSQLite, "":
		store, err := sqlite.NewStore(cfg.SQLitePath, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
