// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/slothbot-dev/slothbot/internal/config"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, config, LINE credentials, a running server and free disk space under the data directory.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", defaultAddress, "server address to check")
	cmd.Flags().Bool("offline", false, "skip the LINE token check")

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")
	offline, _ := cmd.Flags().GetBool("offline")

	cfg, cfgErr := loadConfig()
	dataDir := config.DefaultDataDir()
	if cfg != nil {
		dataDir = cfg.DataDir
	}

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(cfgErr) }},
		{"LINE token", func() string { return checkLineToken(commandContext(cmd), cfg, offline) }},
		{"Server", func() string { return checkServer(addr) }},
		{"Disk Space", func() string { return checkDiskSpace(dataDir) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}
	return nil
}

func checkBinary() string {
	return fmt.Sprintf("slothbot %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(loadErr error) string {
	if loadErr != nil {
		return fmt.Sprintf("invalid: %s", loadErr)
	}
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		return "using defaults (no config file found)"
	}
	if config.WarnInsecurePermissions(cfgFile) {
		return fmt.Sprintf("loaded from %s (readable by others, chmod 600 recommended)", cfgFile)
	}
	return fmt.Sprintf("loaded from %s", cfgFile)
}

// checkLineTokenFunc is swapped in tests.
var checkLineTokenFunc = validateLineToken

func checkLineToken(ctx context.Context, cfg *config.Config, offline bool) string {
	switch {
	case cfg == nil:
		return "skipped (config not loaded)"
	case cfg.Line.ChannelAccessToken == "":
		return "not configured (set CHANNEL_ACCESS_TOKEN or run 'slothbot init')"
	case offline:
		return "configured (not checked, --offline)"
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := checkLineTokenFunc(ctx, cfg.Line.Endpoint, cfg.Line.ChannelAccessToken); err != nil {
		if slotherr.HasCode(err, slotherr.CodeChannelTokenInvalid) {
			return "rejected by LINE (token invalid or revoked)"
		}
		return fmt.Sprintf("unable to check: %s", err)
	}
	return "valid"
}

func checkServer(addr string) string {
	var body struct {
		Status string `json:"status"`
	}
	if err := newServerClient(addr).getJSON("/health", &body); err != nil {
		if slotherr.HasCode(err, slotherr.CodeCLIServerNotRunning) {
			return fmt.Sprintf("not running at %s (run 'slothbot start')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", body.Status, addr)
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
