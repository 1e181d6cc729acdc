package testutil

import (
	"context"
	"errors"
	"testing"
)

const upsert = `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`

func TestStubUpsertIsStagedUntilCommit(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS state (bucket TEXT PRIMARY KEY, payload JSONB NOT NULL)"); err != nil {
		t.Fatalf("ddl: %v", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, "session", []byte(`{"version":2}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(conn.State) != 0 {
		t.Fatalf("upsert visible before commit: %v", conn.State)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if string(conn.State["session"]) != `{"version":2}` {
		t.Fatalf("unexpected state %q", conn.State["session"])
	}

	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, "session", []byte(`{}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	_ = tx.Rollback()
	if string(conn.State["session"]) != `{"version":2}` {
		t.Fatalf("rollback leaked %q", conn.State["session"])
	}
}

func TestStubQueryListsBuckets(t *testing.T) {
	db, conn := NewStubDB()
	defer func() { _ = db.Close() }()
	conn.Seed("zeta", []byte("z"))
	conn.Seed("session", []byte("s"))

	rows, err := db.QueryContext(context.Background(), "SELECT bucket, payload FROM state")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var got []string
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, bucket+"="+string(payload))
	}
	if len(got) != 2 || got[0] != "session=s" || got[1] != "zeta=z" {
		t.Fatalf("unexpected rows %v", got)
	}
}

func TestStubRejectsOtherStatements(t *testing.T) {
	db, _ := NewStubDB()
	defer func() { _ = db.Close() }()
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "DELETE FROM state WHERE bucket=$1", "session"); !errors.Is(err, ErrUnsupportedStatement) {
		t.Fatalf("expected unsupported delete, got %v", err)
	}
	if _, err := db.QueryContext(ctx, "SELECT payload FROM state"); !errors.Is(err, ErrUnsupportedStatement) {
		t.Fatalf("expected unsupported select, got %v", err)
	}
}
