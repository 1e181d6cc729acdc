// Package testutil provides a database/sql stub of the postgres snapshot table
// so the postgres store can be tested without a server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
)

// ErrUnsupportedStatement is returned for SQL the snapshot store never issues.
var ErrUnsupportedStatement = errors.New("stub: unsupported statement")

var driverSeq uint64

// StubConn emulates the single `state(bucket, payload)` table. Upserts made
// inside a transaction are staged and only land in State on commit.
type StubConn struct {
	Execs []string
	State map[string][]byte

	FailPing   bool
	FailDDL    bool
	FailQuery  bool
	FailBegin  bool
	FailUpsert bool
	FailCommit bool
	RowsErr    error
	Closed     int

	staged map[string][]byte
	inTx   bool
}

// NewStubDB registers a fresh driver and returns a sql.DB backed by conn.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{State: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&driverSeq, 1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Seed stores payload under bucket as if it had been committed earlier.
func (c *StubConn) Seed(bucket string, payload []byte) {
	c.State[bucket] = append([]byte(nil), payload...)
}

type stubDriver struct {
	conn *StubConn
}

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn; the store only uses direct exec and query.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, ErrUnsupportedStatement }

// Close implements driver.Conn and counts calls.
func (c *StubConn) Close() error {
	c.Closed++
	return nil
}

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("stub: ping failed")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, errors.New("stub: begin failed")
	}
	c.inTx = true
	c.staged = make(map[string][]byte)
	return stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext for the table DDL and the
// bucket upsert.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	stmt := normalize(query)
	switch {
	case strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS STATE"):
		if c.FailDDL {
			return nil, errors.New("stub: ddl failed")
		}
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(stmt, "INSERT INTO STATE") && strings.Contains(stmt, "ON CONFLICT"):
		if c.FailUpsert {
			return nil, errors.New("stub: upsert failed")
		}
		bucket, payload, err := upsertArgs(args)
		if err != nil {
			return nil, err
		}
		if c.inTx {
			c.staged[bucket] = payload
		} else {
			c.State[bucket] = payload
		}
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedStatement, query)
}

// QueryContext implements driver.QueryerContext for the snapshot scan.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if normalize(query) != "SELECT BUCKET, PAYLOAD FROM STATE" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStatement, query)
	}
	if c.FailQuery {
		return nil, errors.New("stub: query failed")
	}
	buckets := make([]string, 0, len(c.State))
	for b := range c.State {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	rows := &stubRows{err: c.RowsErr}
	for _, b := range buckets {
		rows.rows = append(rows.rows, []driver.Value{b, append([]byte(nil), c.State[b]...)})
	}
	return rows, nil
}

func upsertArgs(args []driver.NamedValue) (string, []byte, error) {
	if len(args) != 2 {
		return "", nil, fmt.Errorf("stub: upsert wants 2 args, got %d", len(args))
	}
	bucket, ok := args[0].Value.(string)
	if !ok {
		return "", nil, fmt.Errorf("stub: bucket must be a string, got %T", args[0].Value)
	}
	switch v := args[1].Value.(type) {
	case []byte:
		return bucket, append([]byte(nil), v...), nil
	case string:
		return bucket, []byte(v), nil
	}
	return "", nil, fmt.Errorf("stub: payload must be bytes, got %T", args[1].Value)
}

func normalize(query string) string {
	return strings.ToUpper(strings.Join(strings.Fields(query), " "))
}

type stubTx struct {
	conn *StubConn
}

func (t stubTx) Commit() error {
	c := t.conn
	defer func() { c.inTx, c.staged = false, nil }()
	if c.FailCommit {
		return errors.New("stub: commit failed")
	}
	for b, p := range c.staged {
		c.State[b] = p
	}
	return nil
}

func (t stubTx) Rollback() error {
	t.conn.inTx, t.conn.staged = false, nil
	return nil
}

type stubRows struct {
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
