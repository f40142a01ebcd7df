// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"bytes"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/viper"

	"github.com/slothbot-dev/slothbot/internal/secrets"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// mockSecretStore is an in-memory secrets.Store.
type mockSecretStore struct {
	mu   sync.Mutex
	data map[string]string // "service/key" -> value
}

func newMockSecretStore() *mockSecretStore {
	return &mockSecretStore{data: map[string]string{}}
}

func (m *mockSecretStore) Store(service, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[service+"/"+key] = value
	return nil
}

func (m *mockSecretStore) Retrieve(service, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[service+"/"+key]
	if !ok {
		return "", slotherr.Errorf(slotherr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	return v, nil
}

func (m *mockSecretStore) Delete(service, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[service+"/"+key]; !ok {
		return slotherr.Errorf(slotherr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	delete(m.data, service+"/"+key)
	return nil
}

func (m *mockSecretStore) List(service string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.data {
		if key, ok := strings.CutPrefix(k, service+"/"); ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// isolate points HOME and the data dir at temp directories, clears
// deployment variables and resets the global viper, so a command run sees
// only what the test sets up. It returns the data dir.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"PORT", "CHANNEL_SECRET", "CHANNEL_ACCESS_TOKEN", "FIREBASE_KEY_JSON"} {
		t.Setenv(name, "")
	}
	dataDir := t.TempDir()
	t.Setenv("SLOTHBOT_DATA_DIR", dataDir)

	viper.Reset()
	t.Cleanup(viper.Reset)
	return dataDir
}

// useSecrets installs store as the secret store for the test.
func useSecrets(t *testing.T, store *mockSecretStore) {
	t.Helper()
	old := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return store }
	t.Cleanup(func() { secretStoreFactory = old })
}

// runCmd executes the root command with args and returns its stdout.
// Logs go to stderr, which is attached to the test log.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	if errOut.Len() > 0 {
		t.Log(errOut.String())
	}
	return out.String(), err
}
