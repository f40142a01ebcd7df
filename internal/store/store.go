// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package store

import (
	"context"
	"iter"
)

// RecordStore persists image records.
//
// Query results are ordered by ascending Seq, so the first match of any
// filter set is the oldest matching record. Implementations must be safe for
// concurrent use.
type RecordStore interface {
	// Insert stores a new record, assigning ID (when empty), Seq and
	// timestamps. A second record with the same content hash fails with
	// ErrConflict.
	Insert(ctx context.Context, r *Record) (string, error)
	Get(ctx context.Context, id string) (*Record, error)
	// Query lazily yields records matching every filter. Each call starts a
	// fresh sequence; stopping early releases the underlying cursor.
	Query(ctx context.Context, filters ...Filter) iter.Seq2[*Record, error]
	// First returns the lowest-Seq match or ErrNotFound.
	First(ctx context.Context, filters ...Filter) (*Record, error)
	Count(ctx context.Context, filters ...Filter) (int, error)
	// UpdateFields changes only the named fields of one record.
	UpdateFields(ctx context.Context, id string, fields Fields) error
	Close() error
}

// Collect drains a query into a slice, stopping at the first error.
func Collect(seq iter.Seq2[*Record, error]) ([]*Record, error) {
	var out []*Record
	for r, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
