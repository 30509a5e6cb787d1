// Package sqlite provides a SQLite-backed state.Store.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-decisions"
	"github.com/goliatone/go-decisions/pkg/state"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// ErrNotConfigured is returned by a zero Store.
var ErrNotConfigured = errors.New("storage is not configured")

// Store persists one context record per client in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ state.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and creates the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, state.WrapError("open", "", errors.New("storage path is required"))
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, state.WrapError("open", path, fmt.Errorf("open sqlite db: %w", err))
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, state.WrapError("open", path, fmt.Errorf("ping sqlite db: %w", err))
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, state.WrapError("open", path, fmt.Errorf("apply schema: %w", err))
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Load returns the record stored for ref.
func (s *Store) Load(ctx context.Context, ref state.Ref) (decisions.ContextRecord, state.Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return decisions.ContextRecord{}, state.Meta{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return decisions.ContextRecord{}, state.Meta{}, false, state.WrapError("load", key, err)
	}
	if s == nil || s.sqlDB == nil {
		return decisions.ContextRecord{}, state.Meta{}, false, state.WrapError("load", key, ErrNotConfigured)
	}

	var (
		meta      state.Meta
		payload   string
		extra     sql.NullString
		updatedAt int64
	)
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT context_id, version, etag, record, extra, updated_at FROM contexts WHERE client_id = ?`,
		key,
	)
	err = row.Scan(&meta.SnapshotID, &meta.Version, &meta.ETag, &payload, &extra, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return decisions.ContextRecord{}, state.Meta{}, false, nil
	}
	if err != nil {
		return decisions.ContextRecord{}, state.Meta{}, false, state.WrapError("load", key, err)
	}
	meta.UpdatedAt = fromMillis(updatedAt)
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &meta.Extra); err != nil {
			return decisions.ContextRecord{}, state.Meta{}, false, state.WrapError("decode", key, err)
		}
	}

	var record decisions.ContextRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return decisions.ContextRecord{}, state.Meta{}, false, state.WrapError("decode", key, err)
	}
	return record, meta, true, nil
}

// Save upserts record for ref.
func (s *Store) Save(ctx context.Context, ref state.Ref, record decisions.ContextRecord, meta state.Meta) (state.Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return state.Meta{}, err
	}
	if err := ctx.Err(); err != nil {
		return state.Meta{}, state.WrapError("save", key, err)
	}
	if s == nil || s.sqlDB == nil {
		return state.Meta{}, state.WrapError("save", key, ErrNotConfigured)
	}

	if meta.SnapshotID == "" {
		meta.SnapshotID = record.Meta.ContextID
	}
	if meta.Version == 0 {
		meta.Version = record.Meta.Version
	}
	if meta.ETag == "" {
		meta.ETag = state.ETag(record)
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return state.Meta{}, state.WrapError("encode", key, err)
	}
	var extra sql.NullString
	if len(meta.Extra) > 0 {
		raw, err := json.Marshal(meta.Extra)
		if err != nil {
			return state.Meta{}, state.WrapError("encode", key, err)
		}
		extra = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO contexts (client_id, context_id, version, etag, record, extra, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(client_id) DO UPDATE SET
		   context_id = excluded.context_id,
		   version = excluded.version,
		   etag = excluded.etag,
		   record = excluded.record,
		   extra = excluded.extra,
		   updated_at = excluded.updated_at`,
		key,
		meta.SnapshotID,
		meta.Version,
		meta.ETag,
		string(payload),
		extra,
		toMillis(meta.UpdatedAt),
	)
	if err != nil {
		return state.Meta{}, state.WrapError("save", key, err)
	}
	meta.UpdatedAt = fromMillis(toMillis(meta.UpdatedAt))
	return meta, nil
}

// Clients lists stored client ids, sorted.
func (s *Store) Clients(ctx context.Context) ([]string, error) {
	if s == nil || s.sqlDB == nil {
		return nil, state.WrapError("list", "", ErrNotConfigured)
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT client_id FROM contexts ORDER BY client_id`)
	if err != nil {
		return nil, state.WrapError("list", "", err)
	}
	defer rows.Close()

	clients := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, state.WrapError("list", "", err)
		}
		clients = append(clients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, state.WrapError("list", "", err)
	}
	return clients, nil
}
