package core

import "shipyard/internal/infra/persistence/sqlite"

// NewSQLiteStore constructs a SQLite-backed session store at path (empty for
// the default file).
func NewSQLiteStore(path string, engine *RulesEngine) (*sqlite.Store, error) {
	return sqlite.NewStore(path, engine)
}
