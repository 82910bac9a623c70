package approval

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"sync"
	"testing"

	"github.com/PilotDataPlatform/download/internal/tassert"
)

// fakeDriver is a minimal database/sql/driver.Driver that returns a fixed
// set of rows for any query, so AllowedIDs can be exercised without a real
// Postgres connection. Rows are keyed by the DSN passed to sql.Open so each
// test case gets its own fixture under one shared registered driver name
// (database/sql forbids registering the same name twice).
type fakeDriver struct{}

func (d *fakeDriver) Open(name string) (driver.Conn, error) {
	fixturesMu.Lock()
	rows := fixtures[name]
	fixturesMu.Unlock()
	return &fakeConn{rows: rows}, nil
}

var (
	fixturesMu sync.Mutex
	fixtures   = map[string][][]driver.Value{}
)

type fakeConn struct {
	rows [][]driver.Value
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{rows: c.rows}, nil
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return nil, sql.ErrTxDone }

type fakeStmt struct {
	rows [][]driver.Value
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }
func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, io.EOF
}
func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	return &fakeRows{rows: s.rows}, nil
}

type fakeRows struct {
	rows [][]driver.Value
	pos  int
}

func (r *fakeRows) Columns() []string { return []string{"id"} }
func (r *fakeRows) Close() error      { return nil }
func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

var registerOnce sync.Once

func openFakeDB(t *testing.T, rows [][]driver.Value) *sql.DB {
	t.Helper()
	registerOnce.Do(func() { sql.Register("approval-fake", &fakeDriver{}) })

	dsn := t.Name()
	fixturesMu.Lock()
	fixtures[dsn] = rows
	fixturesMu.Unlock()

	db, err := sql.Open("approval-fake", dsn)
	tassert.CheckFatal(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestAllowedIDs(t *testing.T) {
	db := openFakeDB(t, [][]driver.Value{{"entity-1"}, {"entity-2"}})
	s := newStoreForDB(db, "public", "approval_entity")

	ids, err := s.AllowedIDs(context.Background(), "req-1")
	tassert.CheckFatal(t, err)
	tassert.Fatalf(t, len(ids) == 2, "expected 2 ids, got %d", len(ids))
	_, ok1 := ids["entity-1"]
	_, ok2 := ids["entity-2"]
	tassert.Errorf(t, ok1 && ok2, "expected entity-1 and entity-2 in allow-list, got %v", ids)
}

func TestAllowedIDsEmpty(t *testing.T) {
	db := openFakeDB(t, nil)
	s := newStoreForDB(db, "public", "approval_entity")

	ids, err := s.AllowedIDs(context.Background(), "req-none")
	tassert.CheckFatal(t, err)
	tassert.Errorf(t, len(ids) == 0, "expected empty allow-list, got %v", ids)
}
