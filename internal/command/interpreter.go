// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package command interprets operator text messages and advances records
// through the classify, name and describe workflow.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/slothbot-dev/slothbot/internal/blob"
	"github.com/slothbot-dev/slothbot/internal/store"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// DonePolicy decides how records reach status done.
type DonePolicy string

const (
	// DoneNever leaves records classified forever.
	DoneNever DonePolicy = "never"
	// DoneManual enables the done command.
	DoneManual DonePolicy = "manual"
	// DoneAuto marks a record done once it is complete.
	DoneAuto DonePolicy = "auto"
)

// Valid reports whether p is a known policy.
func (p DonePolicy) Valid() bool {
	switch p {
	case DoneNever, DoneManual, DoneAuto:
		return true
	}
	return false
}

const (
	DefaultListCategory = "doll"
	DefaultSearchLimit  = 5
)

// Config tunes the interpreter.
type Config struct {
	DonePolicy       DonePolicy
	ListCategory     string // category listed by the list command
	SearchLimit      int
	Categories       []Category
	StrictCategories bool
}

// Outcome summarises what handling a message did.
type Outcome int

const (
	// OutcomeUpdated means a record was mutated.
	OutcomeUpdated Outcome = iota + 1
	// OutcomeListed means a read-only view was returned (list or search hits).
	OutcomeListed
	// OutcomeNoMatch means the search or list found nothing.
	OutcomeNoMatch
	// OutcomeNothingToDo means no record was eligible for the command.
	OutcomeNothingToDo
	// OutcomeRejected means the argument was unusable (unknown category).
	OutcomeRejected
	// OutcomeInfo is a purely instructional reply.
	OutcomeInfo
	// OutcomeEcho is the fallback acknowledgement of unrecognised text.
	OutcomeEcho
)

// Reply is the single response to one operator message.
type Reply struct {
	Intent  Intent
	Outcome Outcome
	Text    string
	// Record is the mutated record for OutcomeUpdated.
	Record *store.Record
	// Matches holds the records behind OutcomeListed.
	Matches []*store.Record
}

// Interpreter handles operator commands. Handle calls are serialised so
// selecting the current record and updating it cannot interleave.
type Interpreter struct {
	records store.RecordStore
	blobs   blob.Store
	cfg     Config
	catalog *Catalog
	logger  *slog.Logger

	mu sync.Mutex
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Interpreter) { i.logger = l }
}

// New creates an interpreter.
func New(records store.RecordStore, blobs blob.Store, cfg Config, opts ...Option) *Interpreter {
	if !cfg.DonePolicy.Valid() {
		cfg.DonePolicy = DoneNever
	}
	if cfg.ListCategory == "" {
		cfg.ListCategory = DefaultListCategory
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}
	in := &Interpreter{
		records: records,
		blobs:   blobs,
		cfg:     cfg,
		catalog: NewCatalog(cfg.Categories, cfg.StrictCategories),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Handle parses text and runs the matching handler.
func (in *Interpreter) Handle(ctx context.Context, text string) (Reply, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.dispatch(ctx, Parse(text))
}

func (in *Interpreter) dispatch(ctx context.Context, it Intent) (Reply, error) {
	switch it.Kind {
	case KindListNamed:
		return in.listNamed(ctx, it)
	case KindSearch:
		return in.search(ctx, it)
	case KindClassify:
		return in.classify(ctx, it)
	case KindName:
		return in.setText(ctx, it, store.FieldName)
	case KindDescribe:
		return in.setText(ctx, it, store.FieldDescription)
	case KindUpdateImagePrompt:
		return Reply{Intent: it, Outcome: OutcomeInfo, Text: msgUpdateImage}, nil
	case KindMarkDone:
		if in.cfg.DonePolicy == DoneManual {
			return in.markDone(ctx, it)
		}
	}
	return in.echo(it), nil
}

func (in *Interpreter) echo(it Intent) Reply {
	return Reply{Intent: it, Outcome: OutcomeEcho, Text: fmt.Sprintf(msgEcho, it.Text)}
}

func (in *Interpreter) listNamed(ctx context.Context, it Intent) (Reply, error) {
	var names []string
	var matches []*store.Record
	q := in.records.Query(ctx,
		store.Eq(store.FieldCategory, in.cfg.ListCategory),
		store.Ne(store.FieldName, ""))
	for rec, err := range q {
		if err != nil {
			return Reply{}, readFailure(err, "listing named records")
		}
		matches = append(matches, rec)
		names = append(names, fmt.Sprintf("%d. %s", len(names)+1, rec.Name))
	}
	if len(names) == 0 {
		return Reply{Intent: it, Outcome: OutcomeNoMatch, Text: msgListEmpty}, nil
	}
	text := fmt.Sprintf(msgListHeader, in.cfg.ListCategory) + "\n" + strings.Join(names, "\n")
	return Reply{Intent: it, Outcome: OutcomeListed, Text: text, Matches: matches}, nil
}

func (in *Interpreter) search(ctx context.Context, it Intent) (Reply, error) {
	fold := cases.Fold()
	needle := fold.String(it.Arg)

	var matches []*store.Record
	for rec, err := range in.records.Query(ctx, store.Ne(store.FieldStatus, string(store.StatusPending))) {
		if err != nil {
			return Reply{}, readFailure(err, "searching records")
		}
		if strings.Contains(fold.String(rec.Name), needle) || strings.Contains(fold.String(rec.Description), needle) {
			matches = append(matches, rec)
			if len(matches) == in.cfg.SearchLimit {
				break
			}
		}
	}
	if len(matches) == 0 {
		return Reply{Intent: it, Outcome: OutcomeNoMatch, Text: fmt.Sprintf(msgSearchNone, it.Arg)}, nil
	}

	entries := make([]string, 0, len(matches))
	for _, rec := range matches {
		entries = append(entries, fmt.Sprintf(msgSearchEntry, rec.Name, rec.Description, rec.PublicURL))
	}
	return Reply{Intent: it, Outcome: OutcomeListed, Text: strings.Join(entries, "\n\n"), Matches: matches}, nil
}

func (in *Interpreter) classify(ctx context.Context, it Intent) (Reply, error) {
	cat, ok := in.catalog.Resolve(it.Arg)
	if !ok {
		text := fmt.Sprintf(msgUnknownCategory, it.Arg, strings.Join(in.catalog.Names(), "、"))
		return Reply{Intent: it, Outcome: OutcomeRejected, Text: text}, nil
	}

	rec, err := in.records.First(ctx,
		store.Eq(store.FieldStatus, string(store.StatusPending)),
		store.Eq(store.FieldCategory, store.CategoryUnknown))
	if errors.Is(err, store.ErrNotFound) {
		return Reply{Intent: it, Outcome: OutcomeNothingToDo, Text: msgNothingToClassify}, nil
	}
	if err != nil {
		return Reply{}, readFailure(err, "selecting record to classify")
	}

	oldPath := rec.BlobPath
	newPath := blob.Join(cat.Prefix, blob.Base(oldPath))
	log := in.logger.With("record_id", rec.ID, "category", cat.Name)

	if newPath != oldPath {
		if err := in.blobs.Copy(ctx, oldPath, newPath); err != nil {
			return Reply{}, writeFailure(err, "copying blob to category", rec.ID)
		}
		if err := in.blobs.MakePublic(ctx, newPath); err != nil {
			in.discard(ctx, log, newPath)
			return Reply{}, writeFailure(err, "publishing classified blob", rec.ID)
		}
	}

	update := store.Fields{
		store.FieldCategory:  cat.Name,
		store.FieldStatus:    string(store.StatusClassified),
		store.FieldBlobPath:  newPath,
		store.FieldPublicURL: in.blobs.PublicURL(newPath),
	}
	after := rec.Clone()
	applyFields(after, update)
	if in.cfg.DonePolicy == DoneAuto && after.Complete() {
		update[store.FieldStatus] = string(store.StatusDone)
	}
	if err := in.records.UpdateFields(ctx, rec.ID, update); err != nil {
		if newPath != oldPath {
			in.discard(ctx, log, newPath)
		}
		return Reply{}, writeFailure(err, "updating classified record", rec.ID)
	}
	if newPath != oldPath {
		// Best effort: the record already points at the new copy.
		in.discard(ctx, log, oldPath)
	}
	applyFields(rec, update)

	log.Info("record classified", "blob_path", newPath, "status", string(rec.Status))
	text := fmt.Sprintf(msgClassified, cat.Name)
	if rec.Status == store.StatusDone {
		text += "\n" + msgDone
	}
	return Reply{Intent: it, Outcome: OutcomeUpdated, Text: text, Record: rec}, nil
}

// setText assigns the name or description of the current record.
func (in *Interpreter) setText(ctx context.Context, it Intent, field store.Field) (Reply, error) {
	rec, err := in.records.First(ctx,
		store.Ne(store.FieldStatus, string(store.StatusDone)),
		store.Eq(field, ""))
	if errors.Is(err, store.ErrNotFound) {
		text := msgNothingToName
		if field == store.FieldDescription {
			text = msgNothingToDescribe
		}
		return Reply{Intent: it, Outcome: OutcomeNothingToDo, Text: text}, nil
	}
	if err != nil {
		return Reply{}, readFailure(err, "selecting record to update")
	}

	update := store.Fields{field: it.Arg}
	after := rec.Clone()
	applyFields(after, update)
	if in.cfg.DonePolicy == DoneAuto && after.Complete() {
		update[store.FieldStatus] = string(store.StatusDone)
	}

	if err := in.records.UpdateFields(ctx, rec.ID, update); err != nil {
		return Reply{}, writeFailure(err, "updating "+string(field), rec.ID)
	}
	applyFields(rec, update)

	in.logger.Info("record updated", "record_id", rec.ID, "field", string(field), "status", string(rec.Status))
	text := fmt.Sprintf(msgNamed, it.Arg)
	if field == store.FieldDescription {
		text = fmt.Sprintf(msgDescribed, it.Arg)
	}
	if rec.Status == store.StatusDone {
		text += "\n" + msgDone
	}
	return Reply{Intent: it, Outcome: OutcomeUpdated, Text: text, Record: rec}, nil
}

func (in *Interpreter) markDone(ctx context.Context, it Intent) (Reply, error) {
	rec, err := in.records.First(ctx,
		store.Eq(store.FieldStatus, string(store.StatusClassified)),
		store.Ne(store.FieldName, ""),
		store.Ne(store.FieldDescription, ""))
	if errors.Is(err, store.ErrNotFound) {
		return Reply{Intent: it, Outcome: OutcomeNothingToDo, Text: msgNothingToFinish}, nil
	}
	if err != nil {
		return Reply{}, readFailure(err, "selecting record to finish")
	}

	update := store.Fields{store.FieldStatus: string(store.StatusDone)}
	if err := in.records.UpdateFields(ctx, rec.ID, update); err != nil {
		return Reply{}, writeFailure(err, "marking record done", rec.ID)
	}
	applyFields(rec, update)

	in.logger.Info("record done", "record_id", rec.ID)
	return Reply{Intent: it, Outcome: OutcomeUpdated, Text: fmt.Sprintf(msgFinished, rec.Name), Record: rec}, nil
}

func (in *Interpreter) discard(ctx context.Context, log *slog.Logger, p string) {
	if err := in.blobs.Delete(ctx, p); err != nil {
		log.Warn("deleting blob failed", "blob_path", p, "error", err)
	}
}

func applyFields(rec *store.Record, fields store.Fields) {
	for f, v := range fields {
		rec.Set(f, v)
	}
}

func readFailure(err error, msg string) error {
	return slotherr.Wrap(err, slotherr.CodeCommandStoreReadFailure, msg)
}

func writeFailure(err error, msg, recordID string) error {
	return slotherr.Wrap(err, slotherr.CodeCommandStoreWriteFailure, msg, slotherr.FieldRecordID(recordID))
}
