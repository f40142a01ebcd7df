// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package command_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blobmem "github.com/slothbot-dev/slothbot/internal/blob/memory"
	"github.com/slothbot-dev/slothbot/internal/command"
	"github.com/slothbot-dev/slothbot/internal/store"
	storemem "github.com/slothbot-dev/slothbot/internal/store/memory"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// countingStore counts writes and can fail selected calls.
type countingStore struct {
	store.RecordStore
	writes    atomic.Int32
	firstErr  error
	updateErr error
}

func (c *countingStore) First(ctx context.Context, filters ...store.Filter) (*store.Record, error) {
	if c.firstErr != nil {
		return nil, c.firstErr
	}
	return c.RecordStore.First(ctx, filters...)
}

func (c *countingStore) UpdateFields(ctx context.Context, id string, fields store.Fields) error {
	c.writes.Add(1)
	if c.updateErr != nil {
		return c.updateErr
	}
	return c.RecordStore.UpdateFields(ctx, id, fields)
}

type harness struct {
	records *countingStore
	blobs   *blobmem.Store
	interp  *command.Interpreter
}

func newHarness(t *testing.T, cfg command.Config) *harness {
	t.Helper()
	h := &harness{
		records: &countingStore{RecordStore: storemem.New()},
		blobs:   blobmem.New("https://cdn.test"),
	}
	h.interp = command.New(h.records, h.blobs, cfg)
	return h
}

// seed inserts a record with a staged blob and returns it.
func (h *harness) seed(t *testing.T, name string, mutate func(*store.Record)) *store.Record {
	t.Helper()
	ctx := context.Background()
	path := "staging/" + name + ".jpg"
	require.NoError(t, h.blobs.Put(ctx, path, []byte(name), "image/jpeg"))
	rec := &store.Record{ContentHash: "sha256:" + name, BlobPath: path, PublicURL: h.blobs.PublicURL(path)}
	if mutate != nil {
		mutate(rec)
	}
	_, err := h.records.RecordStore.Insert(ctx, rec)
	require.NoError(t, err)
	return rec
}

func (h *harness) get(t *testing.T, id string) *store.Record {
	t.Helper()
	rec, err := h.records.Get(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func (h *harness) say(t *testing.T, text string) command.Reply {
	t.Helper()
	reply, err := h.interp.Handle(context.Background(), text)
	require.NoError(t, err)
	return reply
}

func TestClassifyMovesBlobAndUpdatesRecord(t *testing.T) {
	h := newHarness(t, command.Config{})
	rec := h.seed(t, "r1", nil)

	reply := h.say(t, "classify as doll")
	assert.Equal(t, command.OutcomeUpdated, reply.Outcome)

	got := h.get(t, rec.ID)
	assert.Equal(t, "doll", got.Category)
	assert.Equal(t, store.StatusClassified, got.Status)
	assert.Equal(t, "dolls/r1.jpg", got.BlobPath)
	assert.Equal(t, "https://cdn.test/dolls/r1.jpg", got.PublicURL)

	_, oldExists := h.blobs.Data("staging/r1.jpg")
	assert.False(t, oldExists, "old path no longer resolves")
	_, newExists := h.blobs.Data("dolls/r1.jpg")
	assert.True(t, newExists)
	assert.True(t, h.blobs.IsPublic("dolls/r1.jpg"))

	require.NotNil(t, reply.Record)
	assert.Equal(t, rec.ID, reply.Record.ID)
	assert.Equal(t, got.BlobPath, reply.Record.BlobPath)
}

func TestClassifyUsesOldestPendingRecord(t *testing.T) {
	h := newHarness(t, command.Config{})
	first := h.seed(t, "a", nil)
	second := h.seed(t, "b", nil)

	h.say(t, "分類：娃娃")
	assert.Equal(t, "doll", h.get(t, first.ID).Category)
	assert.Equal(t, store.CategoryUnknown, h.get(t, second.ID).Category)

	h.say(t, "classify robots")
	got := h.get(t, second.ID)
	assert.Equal(t, "robots", got.Category)
	assert.Equal(t, "robots/b.jpg", got.BlobPath)
}

func TestClassifyStrictUnknownCategoryWritesNothing(t *testing.T) {
	h := newHarness(t, command.Config{StrictCategories: true})
	h.seed(t, "a", nil)

	reply := h.say(t, "classify as spaceship")
	assert.Equal(t, command.OutcomeRejected, reply.Outcome)
	assert.Contains(t, reply.Text, "doll")
	assert.Zero(t, h.records.writes.Load())
	assert.Equal(t, []blobmem.Op{blobmem.OpPut}, h.blobs.Calls())
}

func TestClassifyRejectsPlaceholderCategory(t *testing.T) {
	h := newHarness(t, command.Config{})
	rec := h.seed(t, "a", nil)

	for _, text := range []string{"classify as unknown", "分類：UNKNOWN"} {
		reply := h.say(t, text)
		assert.Equal(t, command.OutcomeRejected, reply.Outcome, text)
		assert.Contains(t, reply.Text, "doll", text)
	}
	assert.Zero(t, h.records.writes.Load())
	assert.Equal(t, []blobmem.Op{blobmem.OpPut}, h.blobs.Calls())

	got := h.get(t, rec.ID)
	assert.Equal(t, store.StatusPending, got.Status)
	assert.Equal(t, store.CategoryUnknown, got.Category)
	assert.Equal(t, "staging/a.jpg", got.BlobPath)
}

func TestNothingToDoPerformsNoWrites(t *testing.T) {
	tests := []struct {
		name string
		text string
		seed func(*store.Record)
	}{
		{"classify with no pending", "classify as doll", func(r *store.Record) { r.Status = store.StatusClassified; r.Category = "doll" }},
		{"name with all named", "命名：小熊", func(r *store.Record) { r.Name = "taken" }},
		{"describe with all described", "描述：軟", func(r *store.Record) { r.Description = "taken" }},
		{"name with only done records", "name: x", func(r *store.Record) { r.Status = store.StatusDone }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, command.Config{})
			h.seed(t, "a", tt.seed)
			callsBefore := len(h.blobs.Calls())

			reply := h.say(t, tt.text)
			assert.Equal(t, command.OutcomeNothingToDo, reply.Outcome)
			assert.Zero(t, h.records.writes.Load())
			assert.Len(t, h.blobs.Calls(), callsBefore)
		})
	}
}

func TestNothingToDoOnEmptyStore(t *testing.T) {
	h := newHarness(t, command.Config{})
	for _, text := range []string{"classify as doll", "命名：小熊", "描述：軟"} {
		assert.Equal(t, command.OutcomeNothingToDo, h.say(t, text).Outcome, text)
	}
	assert.Zero(t, h.records.writes.Load())
}

func TestNameAndDescribeTouchOnlyTheirField(t *testing.T) {
	h := newHarness(t, command.Config{})
	rec := h.seed(t, "a", func(r *store.Record) {
		r.Status = store.StatusClassified
		r.Category = "doll"
	})

	h.say(t, "命名：小熊")
	got := h.get(t, rec.ID)
	assert.Equal(t, "小熊", got.Name)
	assert.Empty(t, got.Description)
	assert.Equal(t, "doll", got.Category)
	assert.Equal(t, store.StatusClassified, got.Status)

	h.say(t, "描述：軟軟的")
	got = h.get(t, rec.ID)
	assert.Equal(t, "小熊", got.Name)
	assert.Equal(t, "軟軟的", got.Description)
	assert.Equal(t, "doll", got.Category)
	assert.Equal(t, store.StatusClassified, got.Status, "the never policy leaves status alone")
}

func TestNameTargetsPendingRecordsToo(t *testing.T) {
	h := newHarness(t, command.Config{})
	rec := h.seed(t, "a", nil)

	h.say(t, "name: Bunny")
	got := h.get(t, rec.ID)
	assert.Equal(t, "Bunny", got.Name)
	assert.Equal(t, store.StatusPending, got.Status)
}

func TestSearchSubstringMatch(t *testing.T) {
	h := newHarness(t, command.Config{})
	rec := h.seed(t, "a", func(r *store.Record) {
		r.Status = store.StatusClassified
		r.Name = "Bunny"
		r.Description = "soft toy"
	})

	for _, kw := range []string{"Bun", "soft", "bunny", "SOFT TOY"} {
		reply := h.say(t, "search "+kw)
		require.Equal(t, command.OutcomeListed, reply.Outcome, kw)
		require.Len(t, reply.Matches, 1, kw)
		assert.Equal(t, rec.ID, reply.Matches[0].ID)
		assert.Contains(t, reply.Text, rec.PublicURL)
	}

	reply := h.say(t, "search zzz")
	assert.Equal(t, command.OutcomeNoMatch, reply.Outcome)
	assert.Empty(t, reply.Matches)
}

func TestSearchSkipsPendingAndCapsResults(t *testing.T) {
	h := newHarness(t, command.Config{SearchLimit: 3})
	h.seed(t, "pending", func(r *store.Record) { r.Name = "bear pending" })
	for i := range 5 {
		h.seed(t, fmt.Sprintf("b%d", i), func(r *store.Record) {
			r.Status = store.StatusClassified
			r.Name = fmt.Sprintf("bear %d", i)
		})
	}

	reply := h.say(t, "搜尋 bear")
	require.Len(t, reply.Matches, 3)
	assert.Equal(t, "bear 0", reply.Matches[0].Name)
	assert.Equal(t, "bear 2", reply.Matches[2].Name)
	assert.NotContains(t, reply.Text, "bear pending")
}

func TestListNamed(t *testing.T) {
	h := newHarness(t, command.Config{})
	assert.Equal(t, command.OutcomeNoMatch, h.say(t, "清單").Outcome)

	h.seed(t, "a", func(r *store.Record) { r.Category = "doll"; r.Status = store.StatusClassified; r.Name = "小熊" })
	h.seed(t, "b", func(r *store.Record) { r.Category = "doll"; r.Status = store.StatusClassified })
	h.seed(t, "c", func(r *store.Record) { r.Category = "car"; r.Status = store.StatusClassified; r.Name = "小車" })
	h.seed(t, "d", func(r *store.Record) { r.Category = "doll"; r.Status = store.StatusDone; r.Name = "兔兔" })

	reply := h.say(t, "清單")
	assert.Equal(t, command.OutcomeListed, reply.Outcome)
	assert.Contains(t, reply.Text, "1. 小熊\n2. 兔兔")
	assert.NotContains(t, reply.Text, "小車")
}

func TestUpdateImagePromptIsReadOnly(t *testing.T) {
	h := newHarness(t, command.Config{})
	h.seed(t, "a", nil)

	reply := h.say(t, "更新圖片")
	assert.Equal(t, command.OutcomeInfo, reply.Outcome)
	assert.Zero(t, h.records.writes.Load())
}

func TestFallbackEchoes(t *testing.T) {
	h := newHarness(t, command.Config{})
	reply := h.say(t, "hello sloth")
	assert.Equal(t, command.OutcomeEcho, reply.Outcome)
	assert.Equal(t, "你說的是：hello sloth 🦥", reply.Text)
}

func TestDonePolicies(t *testing.T) {
	complete := func(r *store.Record) {
		r.Status = store.StatusClassified
		r.Category = "doll"
		r.Name = "小熊"
	}

	t.Run("never ignores done command", func(t *testing.T) {
		h := newHarness(t, command.Config{DonePolicy: command.DoneNever})
		h.seed(t, "a", func(r *store.Record) { complete(r); r.Description = "d" })
		assert.Equal(t, command.OutcomeEcho, h.say(t, "完成").Outcome)
		assert.Zero(t, h.records.writes.Load())
	})

	t.Run("manual finishes complete records", func(t *testing.T) {
		h := newHarness(t, command.Config{DonePolicy: command.DoneManual})
		incomplete := h.seed(t, "a", complete)
		ready := h.seed(t, "b", func(r *store.Record) { complete(r); r.Description = "d" })

		reply := h.say(t, "done")
		assert.Equal(t, command.OutcomeUpdated, reply.Outcome)
		assert.Equal(t, store.StatusDone, h.get(t, ready.ID).Status)
		assert.Equal(t, store.StatusClassified, h.get(t, incomplete.ID).Status)

		assert.Equal(t, command.OutcomeNothingToDo, h.say(t, "done").Outcome)
	})

	t.Run("auto finishes on completing update", func(t *testing.T) {
		h := newHarness(t, command.Config{DonePolicy: command.DoneAuto})
		rec := h.seed(t, "a", complete)

		reply := h.say(t, "描述：軟軟的")
		assert.Equal(t, store.StatusDone, reply.Record.Status)
		assert.Equal(t, store.StatusDone, h.get(t, rec.ID).Status)
	})

	t.Run("auto finishes when classify completes the record", func(t *testing.T) {
		h := newHarness(t, command.Config{DonePolicy: command.DoneAuto})
		rec := h.seed(t, "a", nil)

		h.say(t, "name: bear")
		h.say(t, "describe: soft")
		require.Equal(t, store.StatusPending, h.get(t, rec.ID).Status)

		reply := h.say(t, "classify as doll")
		assert.Equal(t, command.OutcomeUpdated, reply.Outcome)
		assert.Contains(t, reply.Text, "完成")
		got := h.get(t, rec.ID)
		assert.Equal(t, store.StatusDone, got.Status)
		assert.Equal(t, "doll", got.Category)
		assert.Equal(t, "dolls/a.jpg", got.BlobPath)
	})

	t.Run("never leaves classified records classified", func(t *testing.T) {
		h := newHarness(t, command.Config{DonePolicy: command.DoneNever})
		rec := h.seed(t, "a", func(r *store.Record) { r.Name = "bear"; r.Description = "soft" })

		h.say(t, "classify as doll")
		assert.Equal(t, store.StatusClassified, h.get(t, rec.ID).Status)
	})

	t.Run("auto leaves pending records pending", func(t *testing.T) {
		h := newHarness(t, command.Config{DonePolicy: command.DoneAuto})
		rec := h.seed(t, "a", func(r *store.Record) { r.Name = "小熊" })

		h.say(t, "描述：軟軟的")
		assert.Equal(t, store.StatusPending, h.get(t, rec.ID).Status)
	})
}

func TestStoreFailuresAreCoded(t *testing.T) {
	t.Run("read", func(t *testing.T) {
		h := newHarness(t, command.Config{})
		h.records.firstErr = fmt.Errorf("locked: %w", store.ErrDatabase)

		_, err := h.interp.Handle(context.Background(), "命名：小熊")
		require.Error(t, err)
		assert.True(t, slotherr.HasCode(err, slotherr.CodeCommandStoreReadFailure))
	})

	t.Run("write", func(t *testing.T) {
		h := newHarness(t, command.Config{})
		h.seed(t, "a", nil)
		h.records.updateErr = fmt.Errorf("disk full: %w", store.ErrDatabase)

		_, err := h.interp.Handle(context.Background(), "classify as doll")
		require.Error(t, err)
		assert.True(t, slotherr.HasCode(err, slotherr.CodeCommandStoreWriteFailure))

		// The new copy is rolled back and the original stays put.
		assert.Equal(t, []string{"staging/a.jpg"}, h.blobs.Paths())
	})

	t.Run("blob copy", func(t *testing.T) {
		h := newHarness(t, command.Config{})
		rec := h.seed(t, "a", nil)
		h.blobs.FailOn(blobmem.OpCopy, errors.New("bucket unavailable"))

		_, err := h.interp.Handle(context.Background(), "classify as doll")
		require.Error(t, err)
		assert.True(t, slotherr.HasCode(err, slotherr.CodeCommandStoreWriteFailure))
		assert.Equal(t, store.StatusPending, h.get(t, rec.ID).Status)
		assert.Zero(t, h.records.writes.Load())
	})
}

func TestConcurrentClassifyNeverSharesARecord(t *testing.T) {
	h := newHarness(t, command.Config{})
	const n = 6
	for i := range n {
		h.seed(t, fmt.Sprintf("r%d", i), nil)
	}

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.interp.Handle(context.Background(), "classify as doll")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	classified, err := store.Collect(h.records.Query(context.Background(), store.Eq(store.FieldCategory, "doll")))
	require.NoError(t, err)
	assert.Len(t, classified, n, "each command classified a different record")
	for _, rec := range classified {
		assert.True(t, strings.HasPrefix(rec.BlobPath, "dolls/"), rec.BlobPath)
	}
}
