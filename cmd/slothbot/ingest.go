// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slothbot-dev/slothbot/internal/ingest"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// withCore loads config, wires the offline subsystems and runs fn.
func withCore(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	app, err := WireCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return fn(ctx, app)
}

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest image files as if they had been sent to the bot",
		Long:  "Run each file through the ingestion pipeline: fingerprint, dedup, store and record it as pending.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	return withCore(cmd, func(ctx context.Context, app *App) error {
		out := cmd.OutOrStdout()
		var failed []string
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				_, _ = fmt.Fprintf(out, "%s: %s\n", path, err)
				failed = append(failed, path)
				continue
			}

			res, err := app.Ingest.Ingest(ctx, ingest.Input{
				MessageID: "cli:" + filepath.Base(path),
				Data:      data,
			})
			if err != nil {
				_, _ = fmt.Fprintf(out, "%s: %s\n", path, err)
				failed = append(failed, path)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s: %s %s (%s)\n", path, res.Kind, res.Record.ID, res.Record.BlobPath)
		}
		if len(failed) > 0 {
			return slotherr.Errorf(slotherr.CodeCLIRequestFailure, "%d of %d files failed: %s",
				len(failed), len(args), strings.Join(failed, ", "))
		}
		return nil
	})
}
