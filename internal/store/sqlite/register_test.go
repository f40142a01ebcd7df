// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/slothbot-dev/slothbot/internal/store"
	"github.com/slothbot-dev/slothbot/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordStore_ViaFactory(t *testing.T) {
	dir := filepath.Join(testDir(t), "nested", "data")

	rs, err := store.NewRecordStore(&store.StorageConfig{Backend: "sqlite"}, dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	_, err = os.Stat(filepath.Join(dir, sqlite.DBFile))
	assert.NoError(t, err, "database file should be created inside the data dir")
}

func TestNewRecordStore_PathIsDirectory(t *testing.T) {
	dir := testDir(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, sqlite.DBFile), 0o755))

	_, err := store.NewRecordStore(&store.StorageConfig{Backend: "sqlite"}, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating record store")
}
