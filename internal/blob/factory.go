// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package blob

import (
	"context"
	"fmt"
	"sync"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// Config selects and parameterises a blob backend.
type Config struct {
	Backend string // "local", "gcs" or "memory"; empty means local.

	LocalRoot     string
	PublicBaseURL string // base for local public URLs, e.g. http://host:port

	GCSBucket          string
	GCSCredentialsJSON string
	GCSEndpoint        string // overrides the API endpoint, for emulators
}

// Factory opens a blob store from config.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory for a named blob backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New opens the configured backend.
func New(ctx context.Context, cfg Config) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "local"
	}

	factoriesMu.RLock()
	f, ok := factories[backend]
	factoriesMu.RUnlock()
	if !ok {
		return nil, slotherr.New(slotherr.CodeBlobBackendUnsupported,
			fmt.Sprintf("unsupported blob backend: %q", backend),
			slotherr.Field("backend", backend))
	}
	return f(ctx, cfg)
}
