// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/slothbot-dev/slothbot/internal/store"
)

// DBFile is the database file name inside the data directory.
const DBFile = "records.db"

func init() {
	store.RegisterBackend("sqlite", newRecordStore)
}

func newRecordStore(dataPath string) (store.RecordStore, error) {
	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dataPath, err)
	}
	rs, err := NewRecordStore(filepath.Join(dataPath, DBFile))
	if err != nil {
		return nil, fmt.Errorf("creating record store: %w", err)
	}
	return rs, nil
}
