// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/slothbot-dev/slothbot/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory for a test and removes it afterwards.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "slothbot-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

func openStore(t *testing.T, path string) *sqlite.RecordStore {
	t.Helper()
	rs, err := sqlite.NewRecordStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })
	return rs
}
