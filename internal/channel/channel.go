// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package channel defines the boundary to messaging platforms: inbound
// events, content download and the single reply per event.
package channel

import (
	"context"
	"slices"
	"sync"
	"time"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// EventKind is the type of an inbound message.
type EventKind string

const (
	EventText  EventKind = "text"
	EventImage EventKind = "image"
)

// Event is one inbound message. Image events carry only MessageID; the
// bytes are fetched from the channel on demand.
type Event struct {
	Channel    string
	Kind       EventKind
	MessageID  string
	Text       string
	ReplyToken string
	UserID     string
	Timestamp  time.Time
}

// Content is a downloaded message payload.
type Content struct {
	Data        []byte
	ContentType string
}

// Media is an attachment in a reply.
type Media struct {
	Type       string // "image"
	URL        string
	PreviewURL string
}

// OutboundMessage is the reply to one event.
type OutboundMessage struct {
	ReplyToken string
	Text       string
	Media      []Media
}

// Channel is a messaging platform.
type Channel interface {
	Name() string
	FetchContent(ctx context.Context, messageID string) (Content, error)
	Reply(ctx context.Context, msg OutboundMessage) error
}

// Router looks up channels by name.
type Router struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{channels: make(map[string]Channel)}
}

// Register adds ch under its own name, replacing any previous registration.
func (r *Router) Register(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.Name()] = ch
}

// Get returns the channel registered under name.
func (r *Router) Get(name string) (Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[name]
	if !ok {
		return nil, slotherr.Errorf(slotherr.CodeChannelNotFound, "channel %q not registered", name)
	}
	return ch, nil
}

// Names lists registered channels, sorted.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.channels))
	for name := range r.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Reply routes a reply to the named channel.
func (r *Router) Reply(ctx context.Context, name string, msg OutboundMessage) error {
	ch, err := r.Get(name)
	if err != nil {
		return err
	}
	return ch.Reply(ctx, msg)
}

// FetchContent downloads a message payload from the named channel.
func (r *Router) FetchContent(ctx context.Context, name, messageID string) (Content, error) {
	ch, err := r.Get(name)
	if err != nil {
		return Content{}, err
	}
	return ch.FetchContent(ctx, messageID)
}
