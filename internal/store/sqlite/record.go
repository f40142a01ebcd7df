// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/slothbot-dev/slothbot/internal/store"
)

var _ store.RecordStore = (*RecordStore)(nil)

// RecordStore implements store.RecordStore backed by a SQLite database.
type RecordStore struct {
	db *sql.DB
}

// NewRecordStore opens (or creates) a SQLite database at dbPath and
// initialises the records table.
func NewRecordStore(dbPath string) (*RecordStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening records db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging records db: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating records db: %w", err)
	}

	return &RecordStore{db: db}, nil
}

// seq is the rowid alias, so AUTOINCREMENT guarantees it never repeats or
// goes backwards even after deletes.
func migrate(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS records (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	content_hash TEXT NOT NULL,
	blob_path    TEXT NOT NULL,
	public_url   TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT 'unknown',
	status       TEXT NOT NULL DEFAULT 'pending',
	name         TEXT NOT NULL DEFAULT '',
	description  TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_records_content_hash ON records(content_hash);
CREATE INDEX IF NOT EXISTS idx_records_status_category ON records(status, category);
`
	_, err := db.Exec(ddl)
	return err
}

const recordColumns = `seq, id, content_hash, blob_path, public_url, category, status, name, description, created_at, updated_at`

func (s *RecordStore) Insert(ctx context.Context, r *store.Record) (string, error) {
	if err := store.ValidateNew(r); err != nil {
		return "", err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	const q = `INSERT INTO records (id, content_hash, blob_path, public_url, category, status, name, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		r.ID, r.ContentHash, r.BlobPath, r.PublicURL, r.Category, string(r.Status),
		r.Name, r.Description, formatTime(now), formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("inserting record %s (content %s): %w", r.ID, r.ContentHash, store.ErrConflict)
		}
		return "", fmt.Errorf("inserting record %s: %w: %w", r.ID, store.ErrDatabase, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("reading seq of record %s: %w: %w", r.ID, store.ErrDatabase, err)
	}
	r.Seq = seq
	r.CreatedAt = now
	r.UpdatedAt = now
	return r.ID, nil
}

func (s *RecordStore) Get(ctx context.Context, id string) (*store.Record, error) {
	q := `SELECT ` + recordColumns + ` FROM records WHERE id = ?`
	r, err := scanRecord(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting record %s: %w: %w", id, store.ErrDatabase, err)
	}
	return r, nil
}

func (s *RecordStore) Query(ctx context.Context, filters ...store.Filter) iter.Seq2[*store.Record, error] {
	return func(yield func(*store.Record, error) bool) {
		where, args, err := buildWhere(filters)
		if err != nil {
			yield(nil, err)
			return
		}

		q := `SELECT ` + recordColumns + ` FROM records` + where + ` ORDER BY seq ASC`
		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			yield(nil, fmt.Errorf("querying records: %w: %w", store.ErrDatabase, err))
			return
		}
		defer rows.Close() //nolint:errcheck

		for rows.Next() {
			r, err := scanRecord(rows)
			if err != nil {
				yield(nil, fmt.Errorf("scanning record: %w: %w", store.ErrDatabase, err))
				return
			}
			if !yield(r, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("iterating records: %w: %w", store.ErrDatabase, err))
		}
	}
}

func (s *RecordStore) First(ctx context.Context, filters ...store.Filter) (*store.Record, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}

	q := `SELECT ` + recordColumns + ` FROM records` + where + ` ORDER BY seq ASC LIMIT 1`
	r, err := scanRecord(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no record matching %v: %w", filters, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting first record: %w: %w", store.ErrDatabase, err)
	}
	return r, nil
}

func (s *RecordStore) Count(ctx context.Context, filters ...store.Filter) (int, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w: %w", store.ErrDatabase, err)
	}
	return n, nil
}

func (s *RecordStore) UpdateFields(ctx context.Context, id string, fields store.Fields) error {
	if err := fields.Validate(); err != nil {
		return err
	}

	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for _, field := range fields.Sorted() {
		sets = append(sets, string(field)+" = ?")
		args = append(args, fields[field])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), id)

	q := `UPDATE records SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("updating record %s: %w: %w", id, store.ErrDatabase, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating record %s: %w: %w", id, store.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *RecordStore) Close() error { return s.db.Close() }

// buildWhere renders filters as a parameterised WHERE clause. Field names
// are interpolated only after ValidateFilters has checked them.
func buildWhere(filters []store.Filter) (string, []any, error) {
	if err := store.ValidateFilters(filters); err != nil {
		return "", nil, err
	}
	if len(filters) == 0 {
		return "", nil, nil
	}

	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		op := "="
		if f.Op == store.OpNotEquals {
			op = "!="
		}
		conds = append(conds, string(f.Field)+" "+op+" ?")
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*store.Record, error) {
	var (
		r                    store.Record
		status               string
		createdAt, updatedAt string
	)
	err := sc.Scan(&r.Seq, &r.ID, &r.ContentHash, &r.BlobPath, &r.PublicURL,
		&r.Category, &status, &r.Name, &r.Description, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Status = store.Status(status)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// formatTime serialises a time for storage.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserialises a time string stored in the database.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
