package core

import "shipyard/internal/infra/persistence/postgres"

// NewPostgresStore constructs a Postgres-backed session store from dsn.
func NewPostgresStore(dsn string, engine *RulesEngine) (*postgres.Store, error) {
	return postgres.NewStore(dsn, engine)
}
