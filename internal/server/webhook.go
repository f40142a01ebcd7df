// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slothbot-dev/slothbot/internal/blob"
	"github.com/slothbot-dev/slothbot/internal/channel"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// DefaultWebhookPath is where the messaging platform posts events.
const DefaultWebhookPath = "/callback"

// DefaultMaxWebhookBody caps webhook request bodies.
const DefaultMaxWebhookBody = 1 << 20

// Webhook authenticates and decodes a platform's event callbacks.
type Webhook interface {
	Verify(header http.Header, body []byte) error
	Parse(body []byte) ([]channel.Event, error)
}

// EventDispatcher handles events after the HTTP response has been sent.
type EventDispatcher interface {
	Go(ctx context.Context, ev channel.Event)
}

// WebhookConfig wires a platform webhook to the dispatcher.
type WebhookConfig struct {
	Path         string
	Webhook      Webhook
	Dispatcher   EventDispatcher
	MaxBodyBytes int64
}

// RegisterWebhook mounts the raw webhook handler. It bypasses huma because
// the signature covers the exact request bytes.
func (s *Server) RegisterWebhook(cfg WebhookConfig) error {
	if cfg.Webhook == nil || cfg.Dispatcher == nil {
		return slotherr.New(slotherr.CodeServerConfigInvalid, "webhook and dispatcher are required")
	}
	if cfg.Path == "" {
		cfg.Path = DefaultWebhookPath
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxWebhookBody
	}
	s.router.Post(cfg.Path, webhookHandler(cfg))
	return nil
}

func webhookHandler(cfg WebhookConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "reading body", http.StatusBadRequest)
			return
		}

		if err := cfg.Webhook.Verify(r.Header, body); err != nil {
			slog.Warn("webhook rejected", "code", string(slotherr.CodeOf(err)), "error", err)
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}

		events, err := cfg.Webhook.Parse(body)
		if err != nil {
			slog.Warn("webhook payload rejected", "code", string(slotherr.CodeOf(err)), "error", err)
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		for _, ev := range events {
			cfg.Dispatcher.Go(r.Context(), ev)
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("OK"))
	}
}

// RegisterMedia serves public objects of stores that do not host them
// themselves (the local backend) under /media/.
func (s *Server) RegisterMedia(opener blob.PublicOpener) {
	s.router.Get("/media/*", func(w http.ResponseWriter, r *http.Request) {
		p, err := url.PathUnescape(chi.URLParam(r, "*"))
		if err != nil {
			http.Error(w, "bad path", http.StatusBadRequest)
			return
		}

		rc, err := opener.OpenPublic(r.Context(), p)
		if err != nil {
			switch {
			case slotherr.IsNotFound(err), slotherr.IsInvalidInput(err):
				http.NotFound(w, r)
			default:
				slog.Error("serving media failed", "blob_path", p, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
		defer func() { _ = rc.Close() }()

		w.Header().Set("Content-Type", blob.ContentTypeForPath(p))
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeContent(w, r, blob.Base(p), time.Time{}, rc)
	})
}
