// Package postgres provides a Postgres-backed persistent store that mirrors the
// in-memory semantics and snapshots the session document after every commit.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"shipyard/internal/infra/persistence/memory"
	"shipyard/pkg/domain"
	"shipyard/pkg/sessiondoc"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenPersistentStore defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/shipyard?sslmode=disable"
	// sessionBucket is the state row holding the encoded session document.
	sessionBucket = "session"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It ensures the snapshot table exists and hydrates the in-memory store from
// any existing snapshot.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	mem, err := hydrate(context.Background(), db, engine)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: mem, db: db}, nil
}

func hydrate(ctx context.Context, db *sql.DB, engine *domain.RulesEngine) (*memory.Store, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	mem := memory.NewStore(engine)
	session, ok, err := loadSession(ctx, db)
	if err != nil {
		return nil, err
	}
	if ok {
		mem.ImportState(session)
	}
	return mem, nil
}

// RunInTransaction applies fn within a transaction, then snapshots to Postgres.
// If the snapshot cannot be written the in-memory commit is reverted so the
// store never runs ahead of the database.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.ExportState()
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		s.ImportState(before)
		return res, err
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

func loadSession(ctx context.Context, db *sql.DB) (domain.Session, bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var payload []byte
	for rows.Next() {
		var bucket string
		var data []byte
		if err := rows.Scan(&bucket, &data); err != nil {
			return domain.Session{}, false, fmt.Errorf("scan state: %w", err)
		}
		if bucket == sessionBucket {
			payload = data
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Session{}, false, fmt.Errorf("iterate state: %w", err)
	}
	if len(payload) == 0 {
		return domain.Session{}, false, nil
	}
	session, err := sessiondoc.Decode(payload, nil)
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("decode %s: %w", sessionBucket, err)
	}
	return session, true, nil
}

func (s *Store) persist(ctx context.Context) error {
	data, err := sessiondoc.Encode(s.ExportState())
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, sessionBucket, data); err != nil {
		return fmt.Errorf("upsert %s: %w", sessionBucket, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
