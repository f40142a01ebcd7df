// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/slothbot-dev/slothbot/internal/secrets"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

func init() {
	keyring.MockInit()
}

var _ secrets.Store = (*secrets.KeyringStore)(nil)

func TestKeyringStore_StoreAndRetrieve(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("test-roundtrip", secrets.KeyChannelSecret, "s3cret"))

	val, err := ks.Retrieve("test-roundtrip", secrets.KeyChannelSecret)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", val)
}

func TestKeyringStore_NotFound(t *testing.T) {
	ks := secrets.NewKeyringStore()

	_, err := ks.Retrieve("test-missing", "nope")
	assert.True(t, slotherr.HasCode(err, slotherr.CodeSecretNotFound), "got %v", err)

	err = ks.Delete("test-missing", "nope")
	assert.True(t, slotherr.HasCode(err, slotherr.CodeSecretNotFound), "got %v", err)
}

func TestKeyringStore_ListTracksStoreAndDelete(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-list"

	require.NoError(t, ks.Store(svc, "a", "1"))
	require.NoError(t, ks.Store(svc, "b", "2"))
	require.NoError(t, ks.Store(svc, "a", "overwritten"))

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	val, err := ks.Retrieve(svc, "a")
	require.NoError(t, err)
	assert.Equal(t, "overwritten", val)

	require.NoError(t, ks.Delete(svc, "a"))
	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, keys)

	require.NoError(t, ks.Delete(svc, "b"))
	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyringStore_EmptyInputs(t *testing.T) {
	ks := secrets.NewKeyringStore()

	for name, err := range map[string]error{
		"store no service":    ks.Store("", "k", "v"),
		"store no key":        ks.Store("svc", "", "v"),
		"delete no service":   ks.Delete("", "k"),
		"retrieve no service": func() error { _, err := ks.Retrieve("", "k"); return err }(),
	} {
		assert.True(t, slotherr.HasCode(err, slotherr.CodeSecretInvalidInput), "%s: got %v", name, err)
	}
}

func TestKeyringStore_IsolatedServices(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("svc-one", "token", "one"))
	require.NoError(t, ks.Store("svc-two", "token", "two"))

	one, err := ks.Retrieve("svc-one", "token")
	require.NoError(t, err)
	two, err := ks.Retrieve("svc-two", "token")
	require.NoError(t, err)
	assert.Equal(t, "one", one)
	assert.Equal(t, "two", two)
}
