// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/slothbot-dev/slothbot/internal/blob"
	_ "github.com/slothbot-dev/slothbot/internal/blob/gcs"    // register gcs backend
	_ "github.com/slothbot-dev/slothbot/internal/blob/local"  // register local backend
	_ "github.com/slothbot-dev/slothbot/internal/blob/memory" // register memory backend
	"github.com/slothbot-dev/slothbot/internal/bot"
	"github.com/slothbot-dev/slothbot/internal/channel"
	"github.com/slothbot-dev/slothbot/internal/channel/line"
	"github.com/slothbot-dev/slothbot/internal/command"
	"github.com/slothbot-dev/slothbot/internal/config"
	"github.com/slothbot-dev/slothbot/internal/ingest"
	"github.com/slothbot-dev/slothbot/internal/server"
	"github.com/slothbot-dev/slothbot/internal/store"
	_ "github.com/slothbot-dev/slothbot/internal/store/memory" // register memory backend
	_ "github.com/slothbot-dev/slothbot/internal/store/sqlite" // register sqlite backend
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// lineHTTPClient carries LINE API calls. Downloads can be large, so the
// timeout is generous; the per-event timeout bounds it further.
var lineHTTPClient = &http.Client{Timeout: 60 * time.Second}

// App holds the wired subsystems and manages their lifecycle. Channels,
// Dispatcher and Server are nil for offline use (ingest, say, records).
type App struct {
	Config   *config.Config
	Records  store.RecordStore
	Blobs    blob.Store
	Ingest   *ingest.Pipeline
	Commands *command.Interpreter

	Channels   *channel.Router
	Dispatcher *bot.Dispatcher
	Server     *server.Server
}

// WireCore opens storage and builds the ingestion pipeline and command
// interpreter. It needs no LINE credentials.
func WireCore(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, slotherr.Errorf(slotherr.CodeCLISetupFailure, "creating data directory: %w", err)
	}

	records, err := store.NewRecordStore(cfg.StoreConfig(), cfg.DataDir)
	if err != nil {
		return nil, slotherr.Wrap(err, slotherr.CodeCLISetupFailure, "opening record store")
	}

	blobs, err := blob.New(ctx, cfg.BlobConfig())
	if err != nil {
		_ = records.Close()
		return nil, slotherr.Wrap(err, slotherr.CodeCLISetupFailure, "opening blob store")
	}

	logger := slog.Default()
	return &App{
		Config:  cfg,
		Records: records,
		Blobs:   blobs,
		Ingest: ingest.New(blobs, records, ingest.Config{
			StagingPrefix: cfg.Ingest.StagingPrefix,
			MaxBytes:      cfg.Ingest.MaxBytes,
		}, ingest.WithLogger(logger.With("component", "ingest"))),
		Commands: command.New(records, blobs, cfg.CommandConfig(),
			command.WithLogger(logger.With("component", "command"))),
	}, nil
}

// WireApp builds everything start needs: the core, the LINE channel, the
// event dispatcher and the HTTP server with its webhook, records API and
// media routes.
func WireApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app, err := WireCore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	lineClient := line.NewClient(line.Config{
		AccessToken:  cfg.Line.ChannelAccessToken,
		Endpoint:     cfg.Line.Endpoint,
		DataEndpoint: cfg.Line.DataEndpoint,
		RateLimit:    cfg.Line.RateLimitRPS,
		MaxContent:   cfg.Ingest.MaxBytes,
		HTTPClient:   lineHTTPClient,
	})
	app.Channels = channel.NewRouter()
	app.Channels.Register(lineClient)

	app.Dispatcher = bot.New(bot.Config{
		Channels:     app.Channels,
		Ingester:     app.Ingest,
		Commander:    app.Commands,
		EventTimeout: cfg.Bot.EventTimeout,
		Logger:       slog.Default().With("component", "bot"),
	})

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Networking.RateLimitRPS,
			Burst:             cfg.Networking.RateLimitBurst,
		},
	})
	if err != nil {
		_ = app.Close()
		return nil, slotherr.Wrap(err, slotherr.CodeCLISetupFailure, "creating server")
	}
	app.Server = srv

	services, err := server.NewServices(server.NewRecordService(app.Records))
	if err != nil {
		_ = app.Close()
		return nil, slotherr.Wrap(err, slotherr.CodeCLISetupFailure, "creating services")
	}
	srv.RegisterServices(services)

	if err := srv.RegisterWebhook(server.WebhookConfig{
		Webhook:    line.Webhook{Secret: cfg.Line.ChannelSecret},
		Dispatcher: app.Dispatcher,
	}); err != nil {
		_ = app.Close()
		return nil, slotherr.Wrap(err, slotherr.CodeCLISetupFailure, "registering webhook")
	}

	if opener, ok := app.Blobs.(blob.PublicOpener); ok {
		srv.RegisterMedia(opener)
	}
	return app, nil
}

// Start serves HTTP until ctx is cancelled, then waits for in-flight
// events so their replies are not cut off.
func (a *App) Start(ctx context.Context) error {
	if a.Server == nil {
		return slotherr.New(slotherr.CodeCLISetupFailure, "app was wired without a server")
	}
	err := a.Server.Start(ctx)
	if a.Dispatcher != nil {
		a.Dispatcher.Wait()
	}
	return err
}

// Close releases all resources held by the app.
func (a *App) Close() error {
	var errs []error
	if a.Server != nil {
		errs = append(errs, a.Server.Close())
	}
	if a.Records != nil {
		errs = append(errs, a.Records.Close())
	}
	return errors.Join(errs...)
}
