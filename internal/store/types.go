// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package store

import (
	"fmt"
	"slices"
	"time"
)

// Status is the workflow state of a record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusClassified Status = "classified"
	StatusDone       Status = "done"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusClassified, StatusDone:
		return true
	}
	return false
}

// CategoryUnknown is the category every record starts with.
const CategoryUnknown = "unknown"

// Record is one unique ingested image and its workflow metadata.
type Record struct {
	ID          string
	Seq         int64
	ContentHash string
	BlobPath    string
	PublicURL   string
	Category    string
	Status      Status
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a shallow copy so callers cannot mutate stored state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Complete reports whether the record has both name and description and has
// left the pending state.
func (r *Record) Complete() bool {
	return r.Name != "" && r.Description != "" && r.Status != StatusPending
}

// Field names a record attribute that can be filtered on or updated.
type Field string

const (
	FieldContentHash Field = "content_hash"
	FieldBlobPath    Field = "blob_path"
	FieldPublicURL   Field = "public_url"
	FieldCategory    Field = "category"
	FieldStatus      Field = "status"
	FieldName        Field = "name"
	FieldDescription Field = "description"
)

var (
	queryableFields = []Field{
		FieldContentHash, FieldBlobPath, FieldPublicURL, FieldCategory,
		FieldStatus, FieldName, FieldDescription,
	}
	// content_hash is immutable after insert.
	updatableFields = []Field{
		FieldBlobPath, FieldPublicURL, FieldCategory,
		FieldStatus, FieldName, FieldDescription,
	}
)

// Op is a filter comparison.
type Op string

const (
	OpEquals    Op = "=="
	OpNotEquals Op = "!="
)

// Filter is a single field predicate. A query's filters are ANDed.
type Filter struct {
	Field Field
	Op    Op
	Value string
}

// Eq returns a field == value filter.
func Eq(field Field, value string) Filter {
	return Filter{Field: field, Op: OpEquals, Value: value}
}

// Ne returns a field != value filter.
func Ne(field Field, value string) Filter {
	return Filter{Field: field, Op: OpNotEquals, Value: value}
}

func (f Filter) String() string {
	return fmt.Sprintf("%s %s %q", f.Field, f.Op, f.Value)
}

// Match evaluates the filter against r.
func (f Filter) Match(r *Record) bool {
	got := r.Get(f.Field)
	if f.Op == OpNotEquals {
		return got != f.Value
	}
	return got == f.Value
}

// Get returns the string value of a named field.
func (r *Record) Get(field Field) string {
	switch field {
	case FieldContentHash:
		return r.ContentHash
	case FieldBlobPath:
		return r.BlobPath
	case FieldPublicURL:
		return r.PublicURL
	case FieldCategory:
		return r.Category
	case FieldStatus:
		return string(r.Status)
	case FieldName:
		return r.Name
	case FieldDescription:
		return r.Description
	}
	return ""
}

// Set assigns a named field. Unknown fields are ignored; callers validate
// with Fields.Validate first.
func (r *Record) Set(field Field, value string) {
	switch field {
	case FieldContentHash:
		r.ContentHash = value
	case FieldBlobPath:
		r.BlobPath = value
	case FieldPublicURL:
		r.PublicURL = value
	case FieldCategory:
		r.Category = value
	case FieldStatus:
		r.Status = Status(value)
	case FieldName:
		r.Name = value
	case FieldDescription:
		r.Description = value
	}
}

// ValidateFilters checks every filter names a queryable field and a known op.
func ValidateFilters(filters []Filter) error {
	for _, f := range filters {
		if !slices.Contains(queryableFields, f.Field) {
			return fmt.Errorf("filter on field %q: %w", f.Field, ErrInvalidInput)
		}
		if f.Op != OpEquals && f.Op != OpNotEquals {
			return fmt.Errorf("filter op %q: %w", f.Op, ErrInvalidInput)
		}
	}
	return nil
}

// Fields is a partial update: only the named fields change.
type Fields map[Field]string

// Validate checks the update names only mutable fields and a valid status.
func (fs Fields) Validate() error {
	if len(fs) == 0 {
		return fmt.Errorf("empty update: %w", ErrInvalidInput)
	}
	for field, value := range fs {
		if !slices.Contains(updatableFields, field) {
			return fmt.Errorf("update of field %q: %w", field, ErrInvalidInput)
		}
		if field == FieldStatus && !Status(value).Valid() {
			return fmt.Errorf("status %q: %w", value, ErrInvalidInput)
		}
	}
	return nil
}

// Sorted returns the update's fields in a stable order.
func (fs Fields) Sorted() []Field {
	out := make([]Field, 0, len(fs))
	for f := range fs {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// ValidateNew checks a record before insert and fills creation defaults.
func ValidateNew(r *Record) error {
	if r == nil {
		return fmt.Errorf("nil record: %w", ErrInvalidInput)
	}
	if r.ContentHash == "" {
		return fmt.Errorf("record without content hash: %w", ErrInvalidInput)
	}
	if r.BlobPath == "" {
		return fmt.Errorf("record without blob path: %w", ErrInvalidInput)
	}
	if r.Category == "" {
		r.Category = CategoryUnknown
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if !r.Status.Valid() {
		return fmt.Errorf("status %q: %w", r.Status, ErrInvalidInput)
	}
	return nil
}
