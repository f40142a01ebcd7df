// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package ingest turns inbound image payloads into pending records,
// skipping content that has been seen before.
package ingest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/slothbot-dev/slothbot/internal/blob"
	"github.com/slothbot-dev/slothbot/internal/fingerprint"
	"github.com/slothbot-dev/slothbot/internal/store"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

const (
	DefaultStagingPrefix = "staging"
	DefaultMaxBytes      = 10 << 20
)

// Config tunes the pipeline.
type Config struct {
	StagingPrefix string // object prefix for newly ingested blobs
	MaxBytes      int64  // payloads above this size are rejected; <= 0 disables
}

// Input is one inbound image.
type Input struct {
	MessageID   string // channel message id, logged only
	Data        []byte
	ContentType string // optional; sniffed from Data when empty
}

// Kind distinguishes ingest outcomes.
type Kind int

const (
	Ingested Kind = iota + 1
	Duplicate
)

func (k Kind) String() string {
	switch k {
	case Ingested:
		return "ingested"
	case Duplicate:
		return "duplicate"
	}
	return "unknown"
}

// Outcome is the result of a successful Ingest. Record is the newly created
// record for Ingested and the pre-existing one for Duplicate.
type Outcome struct {
	Kind   Kind
	Record *store.Record
}

// Pipeline fingerprints, dedups, stores and records images.
type Pipeline struct {
	blobs   blob.Store
	records store.RecordStore
	cfg     Config
	logger  *slog.Logger
	newName func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithNameGenerator overrides the generator for blob base names.
func WithNameGenerator(f func() string) Option {
	return func(p *Pipeline) { p.newName = f }
}

// New creates a pipeline over the given stores.
func New(blobs blob.Store, records store.RecordStore, cfg Config, opts ...Option) *Pipeline {
	if cfg.StagingPrefix == "" {
		cfg.StagingPrefix = DefaultStagingPrefix
	}
	p := &Pipeline{
		blobs:   blobs,
		records: records,
		cfg:     cfg,
		logger:  slog.Default(),
		newName: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest stores in as a new pending record unless identical content already
// has one. The blob is written and made public before the record is
// inserted, so a failure part-way leaves at most an unreferenced blob.
func (p *Pipeline) Ingest(ctx context.Context, in Input) (Outcome, error) {
	if len(in.Data) == 0 {
		return Outcome{}, slotherr.New(slotherr.CodeIngestInputInvalid, "empty image payload",
			slotherr.FieldMessageID(in.MessageID))
	}
	if p.cfg.MaxBytes > 0 && int64(len(in.Data)) > p.cfg.MaxBytes {
		return Outcome{}, slotherr.New(slotherr.CodeIngestInputInvalid, "image payload too large",
			slotherr.FieldMessageID(in.MessageID),
			slotherr.Field("size", len(in.Data)),
			slotherr.Field("max_bytes", p.cfg.MaxBytes))
	}

	hash := fingerprint.Sum(in.Data)
	log := p.logger.With("message_id", in.MessageID, "content_hash", fingerprint.Short(hash))

	existing, err := p.records.First(ctx, store.Eq(store.FieldContentHash, hash))
	switch {
	case err == nil:
		log.Info("duplicate image skipped", "record_id", existing.ID)
		return Outcome{Kind: Duplicate, Record: existing}, nil
	case !errors.Is(err, store.ErrNotFound):
		return Outcome{}, slotherr.Wrap(err, slotherr.CodeIngestStoreReadFailure, "looking up content hash",
			slotherr.FieldContentHash(hash), slotherr.FieldMessageID(in.MessageID))
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = blob.DetectContentType(in.Data)
	}
	path := blob.Join(p.cfg.StagingPrefix, p.newName()+"."+blob.ExtForContentType(contentType))

	if err := p.blobs.Put(ctx, path, in.Data, contentType); err != nil {
		return Outcome{}, p.writeFailure(err, "storing blob", hash, path)
	}
	if err := p.blobs.MakePublic(ctx, path); err != nil {
		return Outcome{}, p.writeFailure(err, "publishing blob", hash, path)
	}

	rec := &store.Record{
		ContentHash: hash,
		BlobPath:    path,
		PublicURL:   p.blobs.PublicURL(path),
		Category:    store.CategoryUnknown,
		Status:      store.StatusPending,
	}
	if _, err := p.records.Insert(ctx, rec); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return p.lostRace(ctx, log, hash, path)
		}
		return Outcome{}, p.writeFailure(err, "inserting record", hash, path)
	}

	log.Info("image ingested", "record_id", rec.ID, "blob_path", path)
	return Outcome{Kind: Ingested, Record: rec}, nil
}

// lostRace handles a concurrent ingest of the same content that inserted its
// record first: our blob is an orphan and the winner's record is the answer.
func (p *Pipeline) lostRace(ctx context.Context, log *slog.Logger, hash, path string) (Outcome, error) {
	if err := p.blobs.Delete(ctx, path); err != nil {
		log.Warn("removing orphan blob failed", "blob_path", path, "error", err)
	}
	winner, err := p.records.First(ctx, store.Eq(store.FieldContentHash, hash))
	if err != nil {
		return Outcome{}, slotherr.Wrap(err, slotherr.CodeIngestStoreReadFailure, "loading concurrently inserted record",
			slotherr.FieldContentHash(hash))
	}
	log.Info("duplicate image skipped after concurrent insert", "record_id", winner.ID)
	return Outcome{Kind: Duplicate, Record: winner}, nil
}

func (p *Pipeline) writeFailure(err error, msg, hash, path string) error {
	return slotherr.Wrap(err, slotherr.CodeIngestStoreWriteFailure, msg,
		slotherr.FieldContentHash(hash), slotherr.FieldBlobPath(path))
}
