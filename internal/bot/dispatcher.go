// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package bot routes inbound channel events to ingestion or the command
// interpreter and sends exactly one reply per event.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/slothbot-dev/slothbot/internal/channel"
	"github.com/slothbot-dev/slothbot/internal/command"
	"github.com/slothbot-dev/slothbot/internal/ingest"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// DefaultEventTimeout bounds the work done for one event.
const DefaultEventTimeout = 30 * time.Second

const (
	msgIngested  = "已收到圖片，等待分類 📥\n請輸入「分類：<類別>」"
	msgDuplicate = "這張圖片已經收過了 🦥"
	msgFailed    = "處理失敗，請稍後再試 🦥"
)

// Ingester stores inbound images.
type Ingester interface {
	Ingest(ctx context.Context, in ingest.Input) (ingest.Outcome, error)
}

// Commander handles operator text.
type Commander interface {
	Handle(ctx context.Context, text string) (command.Reply, error)
}

// Hooks are optional callbacks fired after each event is replied to.
type Hooks struct {
	OnReplied func(ev channel.Event, out channel.OutboundMessage, err error)
}

// Config holds dependencies for the Dispatcher.
type Config struct {
	Channels     *channel.Router
	Ingester     Ingester
	Commander    Commander
	EventTimeout time.Duration
	Logger       *slog.Logger
	Hooks        *Hooks
}

// Dispatcher is the single place errors are turned into operator replies.
type Dispatcher struct {
	channels  *channel.Router
	ingester  Ingester
	commander Commander
	timeout   time.Duration
	logger    *slog.Logger
	hooks     *Hooks

	wg sync.WaitGroup
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	timeout := cfg.EventTimeout
	if timeout <= 0 {
		timeout = DefaultEventTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		channels:  cfg.Channels,
		ingester:  cfg.Ingester,
		commander: cfg.Commander,
		timeout:   timeout,
		logger:    logger,
		hooks:     cfg.Hooks,
	}
}

// Handle processes ev and replies on its channel. The returned message is
// what was sent; the error is the processing or reply failure, already
// logged and already answered with the generic failure text.
func (d *Dispatcher) Handle(ctx context.Context, ev channel.Event) (channel.OutboundMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	log := d.logger.With("channel", ev.Channel, "kind", string(ev.Kind), "message_id", ev.MessageID)

	out, err := d.process(ctx, ev)
	if err != nil {
		logError(log, "event failed", err)
		out = channel.OutboundMessage{Text: msgFailed}
	}
	out.ReplyToken = ev.ReplyToken

	if replyErr := d.channels.Reply(ctx, ev.Channel, out); replyErr != nil {
		logError(log, "reply failed", replyErr)
		if err == nil {
			err = replyErr
		}
	}

	if d.hooks != nil && d.hooks.OnReplied != nil {
		d.hooks.OnReplied(ev, out, err)
	}
	return out, err
}

// Go handles ev in the background on a context detached from ctx's
// cancellation, so a finished HTTP request does not abort the work.
func (d *Dispatcher) Go(ctx context.Context, ev channel.Event) {
	detached := context.WithoutCancel(ctx)
	d.wg.Go(func() {
		_, _ = d.Handle(detached, ev)
	})
}

// Wait blocks until all background events have been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) process(ctx context.Context, ev channel.Event) (channel.OutboundMessage, error) {
	switch ev.Kind {
	case channel.EventImage:
		return d.image(ctx, ev)
	case channel.EventText:
		reply, err := d.commander.Handle(ctx, ev.Text)
		if err != nil {
			return channel.OutboundMessage{}, err
		}
		return channel.OutboundMessage{Text: reply.Text}, nil
	}
	return channel.OutboundMessage{}, slotherr.Errorf(slotherr.CodeChannelPayloadInvalid, "unsupported event kind %q", ev.Kind)
}

func (d *Dispatcher) image(ctx context.Context, ev channel.Event) (channel.OutboundMessage, error) {
	content, err := d.channels.FetchContent(ctx, ev.Channel, ev.MessageID)
	if err != nil {
		return channel.OutboundMessage{}, err
	}

	outcome, err := d.ingester.Ingest(ctx, ingest.Input{
		MessageID:   ev.MessageID,
		Data:        content.Data,
		ContentType: content.ContentType,
	})
	if err != nil {
		return channel.OutboundMessage{}, err
	}

	if outcome.Kind == ingest.Duplicate {
		return channel.OutboundMessage{Text: msgDuplicate}, nil
	}
	return channel.OutboundMessage{
		Text:  msgIngested,
		Media: []channel.Media{{Type: "image", URL: outcome.Record.PublicURL}},
	}, nil
}

func logError(log *slog.Logger, msg string, err error) {
	args := []any{"code", string(slotherr.CodeOf(err)), "error", err}
	for k, v := range slotherr.FieldsOf(err) {
		args = append(args, k, v)
	}
	log.Error(msg, args...)
}
