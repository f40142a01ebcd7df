// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package server

import (
	"context"
	"errors"
	"time"

	"github.com/slothbot-dev/slothbot/internal/store"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// IsNotFound reports whether err carries the server.entity.not_found code.
// Service implementations should return slotherr.Errorf(slotherr.CodeServerEntityNotFound, ...)
// so handlers can distinguish "not found" from internal failures.
func IsNotFound(err error) bool {
	return slotherr.HasCode(err, slotherr.CodeServerEntityNotFound)
}

// Services holds dependencies injected into route handlers.
type Services struct {
	records RecordService
}

// NewServices creates a Services instance. The record service is required.
func NewServices(records RecordService) (*Services, error) {
	if records == nil {
		return nil, slotherr.New(slotherr.CodeServerConfigInvalid, "record service is required")
	}
	return &Services{records: records}, nil
}

// Records returns the record service.
func (s *Services) Records() RecordService {
	return s.records
}

// RecordQuery narrows a record listing. Empty fields match everything.
type RecordQuery struct {
	Status   string
	Category string
	Limit    int
}

// RecordService provides read-only record operations for REST handlers.
type RecordService interface {
	List(ctx context.Context, q RecordQuery) ([]RecordView, error)
	Get(ctx context.Context, id string) (*RecordView, error)
	Counts(ctx context.Context) (map[string]int, error)
}

// RecordView is the REST and export representation of a record.
type RecordView struct {
	ID          string    `json:"id" yaml:"id" doc:"Record identifier"`
	Seq         int64     `json:"seq" yaml:"seq" doc:"Ingestion order"`
	ContentHash string    `json:"content_hash" yaml:"content_hash" doc:"Content fingerprint"`
	BlobPath    string    `json:"blob_path" yaml:"blob_path" doc:"Object store path"`
	PublicURL   string    `json:"public_url" yaml:"public_url" doc:"Public image URL"`
	Category    string    `json:"category" yaml:"category" doc:"Category, or unknown"`
	Status      string    `json:"status" yaml:"status" enum:"pending,classified,done" doc:"Workflow status"`
	Name        string    `json:"name" yaml:"name" doc:"Display name"`
	Description string    `json:"description" yaml:"description" doc:"Free-text description"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at" doc:"Ingestion time"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at" doc:"Last update time"`
}

// ViewOf converts a stored record to its REST form.
func ViewOf(r *store.Record) RecordView {
	return RecordView{
		ID:          r.ID,
		Seq:         r.Seq,
		ContentHash: r.ContentHash,
		BlobPath:    r.BlobPath,
		PublicURL:   r.PublicURL,
		Category:    r.Category,
		Status:      string(r.Status),
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// storeRecordService serves REST reads straight from a RecordStore.
type storeRecordService struct {
	records store.RecordStore
}

// NewRecordService adapts a RecordStore to RecordService.
func NewRecordService(records store.RecordStore) RecordService {
	return &storeRecordService{records: records}
}

func (s *storeRecordService) List(ctx context.Context, q RecordQuery) ([]RecordView, error) {
	var filters []store.Filter
	if q.Status != "" {
		filters = append(filters, store.Eq(store.FieldStatus, q.Status))
	}
	if q.Category != "" {
		filters = append(filters, store.Eq(store.FieldCategory, q.Category))
	}

	views := []RecordView{}
	for rec, err := range s.records.Query(ctx, filters...) {
		if err != nil {
			return nil, store.AsCoded(err, "listing records")
		}
		views = append(views, ViewOf(rec))
		if q.Limit > 0 && len(views) == q.Limit {
			break
		}
	}
	return views, nil
}

func (s *storeRecordService) Get(ctx context.Context, id string) (*RecordView, error) {
	rec, err := s.records.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, slotherr.New(slotherr.CodeServerEntityNotFound, "record not found", slotherr.FieldRecordID(id))
	}
	if err != nil {
		return nil, store.AsCoded(err, "loading record", slotherr.FieldRecordID(id))
	}
	view := ViewOf(rec)
	return &view, nil
}

func (s *storeRecordService) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 3)
	for _, st := range []store.Status{store.StatusPending, store.StatusClassified, store.StatusDone} {
		n, err := s.records.Count(ctx, store.Eq(store.FieldStatus, string(st)))
		if err != nil {
			return nil, store.AsCoded(err, "counting records")
		}
		counts[string(st)] = n
	}
	return counts, nil
}
