// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

//go:embed slothbot.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/slothbot/slothbot.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", slotherr.Errorf(slotherr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "slothbot", "slothbot.yaml"), nil
}

// BootstrapConfig writes the commented default config to the default path
// if nothing is there yet. See BootstrapConfigAt.
func BootstrapConfig() string {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	return BootstrapConfigAt(cfgPath)
}

// BootstrapConfigAt writes the commented default config to cfgPath if it
// does not already exist. It returns the path written, or "" when the file
// existed or could not be written. Failures are logged, never fatal.
func BootstrapConfigAt(cfgPath string) string {
	if _, err := os.Stat(cfgPath); err == nil {
		return ""
	}

	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		slog.Debug("skipping config bootstrap: cannot create directory", "path", dir, "error", err)
		return ""
	}

	if err := os.WriteFile(cfgPath, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap: cannot write config", "path", cfgPath, "error", err)
		return ""
	}

	slog.Info("created default config", "path", cfgPath)
	return cfgPath
}
