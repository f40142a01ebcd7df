// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package store_test

import (
	"testing"

	"github.com/slothbot-dev/slothbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterMatch(t *testing.T) {
	r := &store.Record{Status: store.StatusPending, Category: "unknown", Name: ""}

	assert.True(t, store.Eq(store.FieldStatus, "pending").Match(r))
	assert.False(t, store.Ne(store.FieldStatus, "pending").Match(r))
	assert.True(t, store.Eq(store.FieldName, "").Match(r))
	assert.True(t, store.Ne(store.FieldCategory, "doll").Match(r))
}

func TestValidateNewFillsDefaults(t *testing.T) {
	r := &store.Record{ContentHash: "h", BlobPath: "p"}
	require.NoError(t, store.ValidateNew(r))
	assert.Equal(t, store.StatusPending, r.Status)
	assert.Equal(t, store.CategoryUnknown, r.Category)

	assert.ErrorIs(t, store.ValidateNew(&store.Record{BlobPath: "p"}), store.ErrInvalidInput)
	assert.ErrorIs(t, store.ValidateNew(&store.Record{ContentHash: "h"}), store.ErrInvalidInput)
	assert.ErrorIs(t, store.ValidateNew(nil), store.ErrInvalidInput)
	assert.ErrorIs(t, store.ValidateNew(&store.Record{ContentHash: "h", BlobPath: "p", Status: "lost"}), store.ErrInvalidInput)
}

func TestRecordComplete(t *testing.T) {
	tests := []struct {
		name string
		r    store.Record
		want bool
	}{
		{"pending with both", store.Record{Status: store.StatusPending, Name: "n", Description: "d"}, false},
		{"classified with both", store.Record{Status: store.StatusClassified, Name: "n", Description: "d"}, true},
		{"classified missing description", store.Record{Status: store.StatusClassified, Name: "n"}, false},
		{"done", store.Record{Status: store.StatusDone, Name: "n", Description: "d"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.Complete())
		})
	}
}

func TestFieldsSortedIsStable(t *testing.T) {
	fs := store.Fields{store.FieldStatus: "done", store.FieldCategory: "doll", store.FieldBlobPath: "p"}
	assert.Equal(t, []store.Field{store.FieldBlobPath, store.FieldCategory, store.FieldStatus}, fs.Sorted())
}
