// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothbot-dev/slothbot/internal/server"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

func TestRootCommand_Help(t *testing.T) {
	isolate(t)
	out, err := runCmd(t, "", "--help")
	require.NoError(t, err)
	for _, sub := range []string{"slothbot", "start", "status", "ingest", "say", "records", "secret", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := runCmd(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "slothbot dev")
}

func TestInitViper_BootstrapsDefaultConfig(t *testing.T) {
	isolate(t)
	_, err := runCmd(t, "", "version")
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	_, err = os.Stat(filepath.Join(home, ".config", "slothbot", "slothbot.yaml"))
	assert.NoError(t, err)
}

func TestInitViper_LoadsEnvFile(t *testing.T) {
	isolate(t)
	envFile := filepath.Join(t.TempDir(), "bot.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SLOTHBOT_TEST_ROOT_ENVFILE=loaded\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SLOTHBOT_TEST_ROOT_ENVFILE") })

	_, err := runCmd(t, "", "--env-file", envFile, "version")
	require.NoError(t, err)
	assert.Equal(t, "loaded", os.Getenv("SLOTHBOT_TEST_ROOT_ENVFILE"))
}

func TestStartCommand_MissingConfigFile(t *testing.T) {
	isolate(t)
	_, err := runCmd(t, "", "start", "--config", "/nonexistent/path.yaml")
	require.Error(t, err)
	assert.True(t, slotherr.HasCode(err, slotherr.CodeConfigLoadReadFailure))
}

func TestStartCommand_RequiresLineCredentials(t *testing.T) {
	isolate(t)
	_, err := runCmd(t, "", "start")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHANNEL_SECRET")
	assert.Contains(t, err.Error(), "CHANNEL_ACCESS_TOKEN")
}

func TestStartCommand_UnresolvableKeyringSecret(t *testing.T) {
	isolate(t)
	useSecrets(t, newMockSecretStore())
	t.Setenv("CHANNEL_SECRET", "keyring://slothbot/line-channel-secret")

	_, err := runCmd(t, "", "start")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line.channel_secret")
}

func TestStatusCommand_RunningServer(t *testing.T) {
	isolate(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(server.StatusBody{
			Status:  "ok",
			Version: server.Version,
			Records: map[string]int{"pending": 2, "classified": 1, "done": 0},
			Total:   3,
		})
	}))
	defer ts.Close()

	out, err := runCmd(t, "", "status", "--address", strings.TrimPrefix(ts.URL, "http://"))
	require.NoError(t, err)
	assert.Contains(t, out, ": ok (version "+server.Version+")")
	assert.Contains(t, out, "pending:")
	assert.Contains(t, out, "total:")
	assert.Less(t, strings.Index(out, "classified:"), strings.Index(out, "pending:"), "statuses are sorted")
}

func TestStatusCommand_ServerDown(t *testing.T) {
	isolate(t)
	out, err := runCmd(t, "", "status", "--address", closedAddress(t))
	require.NoError(t, err)
	assert.Contains(t, out, "is not running")
}

// closedAddress returns a loopback address nothing listens on.
func closedAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}
