// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package store

import (
	"fmt"
	"slices"
	"sync"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// RecordStoreFactory opens a record store rooted at dataPath.
type RecordStoreFactory func(dataPath string) (RecordStore, error)

var (
	factories   = map[string]RecordStoreFactory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f RecordStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg *StorageConfig) string {
	if cfg == nil || cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// NewRecordStore opens the record store for the configured backend.
func NewRecordStore(cfg *StorageConfig, dataPath string) (RecordStore, error) {
	backend := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, slotherr.New(slotherr.CodeStoreBackendUnsupported,
			fmt.Sprintf("unsupported storage backend: %q", backend),
			slotherr.Field("backend", backend))
	}

	return factory(dataPath)
}
