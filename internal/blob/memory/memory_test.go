// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/slothbot-dev/slothbot/internal/blob"
	"github.com/slothbot-dev/slothbot/internal/blob/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := memory.New("https://cdn.test")

	require.NoError(t, s.Put(ctx, "staging/a.jpg", []byte("img"), "image/jpeg"))
	require.NoError(t, s.MakePublic(ctx, "staging/a.jpg"))
	assert.True(t, s.IsPublic("staging/a.jpg"))
	assert.Equal(t, "https://cdn.test/staging/a.jpg", s.PublicURL("staging/a.jpg"))

	require.NoError(t, blob.Move(ctx, s, "staging/a.jpg", "dolls/a.jpg"))
	assert.Equal(t, []string{"dolls/a.jpg"}, s.Paths())
	assert.False(t, s.IsPublic("dolls/a.jpg"))

	data, ok := s.Data("dolls/a.jpg")
	require.True(t, ok)
	assert.Equal(t, "img", string(data))
	assert.Equal(t, []memory.Op{memory.OpPut, memory.OpMakePublic, memory.OpCopy, memory.OpDelete}, s.Calls())
}

func TestFailureInjection(t *testing.T) {
	ctx := context.Background()
	s := memory.New("")
	boom := errors.New("quota exceeded")

	s.FailOn(memory.OpPut, boom)
	assert.ErrorIs(t, s.Put(ctx, "a.jpg", nil, ""), boom)
	assert.Empty(t, s.Paths())

	s.FailOn(memory.OpPut, nil)
	assert.NoError(t, s.Put(ctx, "a.jpg", nil, ""))
}
