// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package memory is an in-process blob store for tests and ephemeral runs.
package memory

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/slothbot-dev/slothbot/internal/blob"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

var (
	_ blob.Store        = (*Store)(nil)
	_ blob.PublicOpener = (*Store)(nil)
)

func init() {
	blob.RegisterBackend("memory", func(_ context.Context, cfg blob.Config) (blob.Store, error) {
		return New(cfg.PublicBaseURL + "/media"), nil
	})
}

// Op names a store operation for failure injection.
type Op string

const (
	OpPut        Op = "put"
	OpCopy       Op = "copy"
	OpDelete     Op = "delete"
	OpMakePublic Op = "make_public"
)

type object struct {
	data        []byte
	contentType string
	public      bool
}

// Store holds objects in a map.
type Store struct {
	mu      sync.Mutex
	baseURL string
	objects map[string]*object
	fail    map[Op]error
	calls   []Op
}

// New returns an empty store whose public URLs start with baseURL.
func New(baseURL string) *Store {
	return &Store{
		baseURL: baseURL,
		objects: map[string]*object{},
		fail:    map[Op]error{},
	}
}

// FailOn makes every subsequent op return err. A nil err clears it.
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns the mutating operations performed so far, in order.
func (s *Store) Calls() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Paths returns the stored object paths, sorted.
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.objects))
}

// Data returns a copy of an object's bytes.
func (s *Store) Data(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[p]
	if !ok {
		return nil, false
	}
	return bytes.Clone(o.data), true
}

// IsPublic reports whether MakePublic has been called on p.
func (s *Store) IsPublic(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[p]
	return ok && o.public
}

func (s *Store) begin(op Op) error {
	s.calls = append(s.calls, op)
	return s.fail[op]
}

func (s *Store) Put(ctx context.Context, p string, data []byte, contentType string) error {
	if err := blob.ValidatePath(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpPut); err != nil {
		return err
	}
	s.objects[p] = &object{data: bytes.Clone(data), contentType: contentType}
	return ctx.Err()
}

func (s *Store) Copy(ctx context.Context, src, dst string) error {
	if err := blob.ValidatePath(dst); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpCopy); err != nil {
		return err
	}
	o, ok := s.objects[src]
	if !ok {
		return slotherr.New(slotherr.CodeBlobNotFound, "source blob does not exist", slotherr.FieldBlobPath(src))
	}
	s.objects[dst] = &object{data: bytes.Clone(o.data), contentType: o.contentType}
	return ctx.Err()
}

func (s *Store) Delete(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpDelete); err != nil {
		return err
	}
	delete(s.objects, p)
	return ctx.Err()
}

func (s *Store) MakePublic(ctx context.Context, p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(OpMakePublic); err != nil {
		return err
	}
	o, ok := s.objects[p]
	if !ok {
		return slotherr.New(slotherr.CodeBlobNotFound, "blob does not exist", slotherr.FieldBlobPath(p))
	}
	o.public = true
	return ctx.Err()
}

func (s *Store) PublicURL(p string) string {
	return s.baseURL + "/" + p
}

func (s *Store) Exists(_ context.Context, p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[p]
	return ok, nil
}

func (s *Store) OpenPublic(_ context.Context, p string) (io.ReadSeekCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[p]
	if !ok || !o.public {
		return nil, slotherr.New(slotherr.CodeBlobNotFound, "blob is not public", slotherr.FieldBlobPath(p))
	}
	return nopCloser{bytes.NewReader(bytes.Clone(o.data))}, nil
}

type nopCloser struct{ *bytes.Reader }

func (nopCloser) Close() error { return nil }
