// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the bot",
		Long:  "Load configuration, wire storage and the LINE channel, and serve the webhook until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	_ = viper.BindPFlag("networking.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if errs := cfg.ValidateForServe(); len(errs) > 0 {
		return slotherr.Errorf(slotherr.CodeConfigValidateInvalidValue, "config is not ready to serve: %w", errors.Join(errs...))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := WireApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	slog.Info("slothbot listening",
		"listen", cfg.Networking.Listen,
		"public_base_url", cfg.Networking.PublicBaseURL,
		"storage", cfg.Storage.Backend,
		"blobs", cfg.Blobs.Backend,
		"done_policy", cfg.Workflow.DonePolicy,
	)
	return app.Start(ctx)
}

// commandContext returns cmd's context, or Background when the command is
// executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
