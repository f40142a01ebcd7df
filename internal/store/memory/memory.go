// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package memory is an in-process record store. It backs tests and
// throwaway deployments; contents are lost on exit.
package memory

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slothbot-dev/slothbot/internal/store"
)

var _ store.RecordStore = (*Store)(nil)

func init() {
	store.RegisterBackend("memory", func(string) (store.RecordStore, error) {
		return New(), nil
	})
}

// Store keeps records in insertion (Seq) order.
type Store struct {
	mu      sync.RWMutex
	seq     int64
	records []*store.Record
	byID    map[string]*store.Record
	byHash  map[string]*store.Record
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:   map[string]*store.Record{},
		byHash: map[string]*store.Record{},
		now:    time.Now,
	}
}

func (s *Store) Insert(ctx context.Context, r *store.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := store.ValidateNew(r); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byHash[r.ContentHash]; dup {
		return "", fmt.Errorf("content hash %s: %w", r.ContentHash, store.ErrConflict)
	}
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, dup := s.byID[id]; dup {
		return "", fmt.Errorf("record %s: %w", id, store.ErrConflict)
	}

	r.ID = id
	s.seq++
	now := s.now().UTC()
	r.Seq = s.seq
	r.CreatedAt = now
	r.UpdatedAt = now

	stored := r.Clone()
	s.records = append(s.records, stored)
	s.byID[stored.ID] = stored
	s.byHash[stored.ContentHash] = stored
	return stored.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	return r.Clone(), nil
}

// Query walks a snapshot of the matching records taken when iteration starts.
func (s *Store) Query(ctx context.Context, filters ...store.Filter) iter.Seq2[*store.Record, error] {
	return func(yield func(*store.Record, error) bool) {
		if err := store.ValidateFilters(filters); err != nil {
			yield(nil, err)
			return
		}
		for _, r := range s.snapshot(filters) {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (s *Store) snapshot(filters []store.Filter) []*store.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Record
	for _, r := range s.records {
		if matchAll(r, filters) {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (s *Store) First(ctx context.Context, filters ...store.Filter) (*store.Record, error) {
	for r, err := range s.Query(ctx, filters...) {
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("no record matching %v: %w", filters, store.ErrNotFound)
}

func (s *Store) Count(ctx context.Context, filters ...store.Filter) (int, error) {
	n := 0
	for _, err := range s.Query(ctx, filters...) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

func (s *Store) UpdateFields(ctx context.Context, id string, fields store.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fields.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	for field, value := range fields {
		r.Set(field, value)
	}
	r.UpdatedAt = s.now().UTC()
	return nil
}

func (s *Store) Close() error { return nil }

func matchAll(r *store.Record, filters []store.Filter) bool {
	for _, f := range filters {
		if !f.Match(r) {
			return false
		}
	}
	return true
}
