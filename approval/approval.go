// Package approval resolves the allow-list of entity ids recorded against a
// copy/approval request, per spec.md §4.6. Grounded on original_source's
// app/services/approval/client.go (the approval_entity table, the
// "select ... filter_by(request_id=...)" query) and storj-storj's go.mod
// use of github.com/lib/pq as a plain database/sql driver.
package approval

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/PilotDataPlatform/download/cmn"
)

// Store queries the approval_entity table for the set of entity ids whose
// review is recorded against one request.
type Store struct {
	db     *sql.DB
	table  string // e.g. "public.approval_entity"
}

// Open connects to Postgres at dsn, addressing the approval table by
// schema.table (schema defaults to "public" in cfg).
func Open(dsn, schema, table string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "approval")
	}
	if err := db.Ping(); err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "approval")
	}
	return &Store{db: db, table: fmt.Sprintf("%s.%s", schema, table)}, nil
}

// newStoreForDB builds a Store directly over an already-open *sql.DB,
// letting tests inject a fake driver without dialing a real Postgres.
func newStoreForDB(db *sql.DB, schema, table string) *Store {
	return &Store{db: db, table: fmt.Sprintf("%s.%s", schema, table)}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the Postgres connection is reachable, for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AllowedIDs returns the set of entity ids recorded against requestID. An
// empty, non-nil map means the request has zero recorded entities (the
// manager must then treat the whole selection as denied, per spec.md §4.6).
func (s *Store) AllowedIDs(ctx context.Context, requestID string) (map[string]struct{}, error) {
	query := fmt.Sprintf("SELECT entity_id FROM %s WHERE request_id = $1", s.table)
	rows, err := s.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "approval")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, cmn.NewErrUpstreamUnavailable(err, "approval")
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, cmn.NewErrUpstreamUnavailable(err, "approval")
	}
	return ids, nil
}
