// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package local stores blobs in a directory tree. Public objects are served
// by the bot's own HTTP server under /media/.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/slothbot-dev/slothbot/internal/blob"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// MediaPrefix is the URL path under which public objects are served.
const MediaPrefix = "/media/"

const (
	objectsDir = "objects"
	publicDir  = "public"
	tmpDir     = "tmp"
)

var (
	_ blob.Store        = (*Store)(nil)
	_ blob.PublicOpener = (*Store)(nil)
)

func init() {
	blob.RegisterBackend("local", func(_ context.Context, cfg blob.Config) (blob.Store, error) {
		return New(cfg.LocalRoot, cfg.PublicBaseURL)
	})
}

// Store keeps object bytes under <root>/objects and a zero-length marker
// per public object under <root>/public.
type Store struct {
	root    string
	baseURL string
}

// New creates a store rooted at root. baseURL prefixes public URLs.
func New(root, baseURL string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, slotherr.New(slotherr.CodeBlobWriteFailure, "local blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "resolving blob root")
	}
	for _, dir := range []string{objectsDir, publicDir, tmpDir} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o755); err != nil {
			return nil, slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "creating blob root",
				slotherr.Field("dir", dir))
		}
	}
	return &Store{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the absolute root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) Put(ctx context.Context, p string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.objectPath(p)
	if err != nil {
		return err
	}
	if err := s.writeAtomic(dst, data); err != nil {
		return slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "writing blob", slotherr.FieldBlobPath(p))
	}
	return nil
}

func (s *Store) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	srcPath, err := s.objectPath(src)
	if err != nil {
		return err
	}
	dstPath, err := s.objectPath(dst)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(srcPath)
	if errors.Is(err, os.ErrNotExist) {
		return slotherr.New(slotherr.CodeBlobNotFound, "source blob does not exist", slotherr.FieldBlobPath(src))
	}
	if err != nil {
		return slotherr.Wrap(err, slotherr.CodeBlobReadFailure, "reading blob", slotherr.FieldBlobPath(src))
	}
	if err := s.writeAtomic(dstPath, data); err != nil {
		return slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "copying blob",
			slotherr.FieldBlobPath(dst), slotherr.Field("source", src))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	obj, err := s.objectPath(p)
	if err != nil {
		return err
	}
	for _, target := range []string{obj, s.markerPath(p)} {
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "deleting blob", slotherr.FieldBlobPath(p))
		}
	}
	return nil
}

func (s *Store) MakePublic(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ok, err := s.Exists(ctx, p)
	if err != nil {
		return err
	}
	if !ok {
		return slotherr.New(slotherr.CodeBlobNotFound, "blob does not exist", slotherr.FieldBlobPath(p))
	}
	marker := s.markerPath(p)
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		return slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "creating public marker dir", slotherr.FieldBlobPath(p))
	}
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return slotherr.Wrap(err, slotherr.CodeBlobWriteFailure, "marking blob public", slotherr.FieldBlobPath(p))
	}
	return nil
}

func (s *Store) PublicURL(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + MediaPrefix + strings.Join(segments, "/")
}

func (s *Store) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	obj, err := s.objectPath(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(obj)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, slotherr.Wrap(err, slotherr.CodeBlobReadFailure, "checking blob", slotherr.FieldBlobPath(p))
	}
}

// OpenPublic opens an object only if it was made public.
func (s *Store) OpenPublic(ctx context.Context, p string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obj, err := s.objectPath(p)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(s.markerPath(p)); err != nil {
		return nil, slotherr.New(slotherr.CodeBlobNotFound, "blob is not public", slotherr.FieldBlobPath(p))
	}
	f, err := os.Open(obj)
	if errors.Is(err, os.ErrNotExist) {
		return nil, slotherr.New(slotherr.CodeBlobNotFound, "blob does not exist", slotherr.FieldBlobPath(p))
	}
	if err != nil {
		return nil, slotherr.Wrap(err, slotherr.CodeBlobReadFailure, "opening blob", slotherr.FieldBlobPath(p))
	}
	return f, nil
}

func (s *Store) objectPath(p string) (string, error) {
	if err := blob.ValidatePath(p); err != nil {
		return "", err
	}
	return filepath.Join(s.root, objectsDir, filepath.FromSlash(p)), nil
}

// markerPath assumes p has already been validated.
func (s *Store) markerPath(p string) string {
	return filepath.Join(s.root, publicDir, filepath.FromSlash(p))
}

// writeAtomic writes through a temp file and renames it into place so
// readers never observe a partial object.
func (s *Store) writeAtomic(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}
