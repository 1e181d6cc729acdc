package core

import (
	"fmt"

	"shipyard/internal/infra/persistence/memory"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions carries driver-specific settings.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenPersistentStore selects a backend from opts. An empty driver means
// sqlite. The returned close function releases database handles.
func OpenPersistentStore(opts StorageOptions, engine *RulesEngine) (PersistentStore, func() error, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	noClose := func() error { return nil }
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), noClose, nil
	case StorageSQLite:
		store, err := NewSQLiteStore(opts.SQLitePath, engine)
		if err != nil {
			return nil, noClose, err
		}
		return store, store.Close, nil
	case StoragePostgres:
		store, err := NewPostgresStore(opts.PostgresDSN, engine)
		if err != nil {
			return nil, noClose, err
		}
		return store, store.DB().Close, nil
	default:
		return nil, noClose, fmt.Errorf("unknown storage driver %s", driver)
	}
}
