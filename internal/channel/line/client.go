// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package line implements the LINE Messaging API channel.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/slothbot-dev/slothbot/internal/channel"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// Name is the channel name used for routing.
const Name = "line"

const (
	DefaultEndpoint     = "https://api.line.me"
	DefaultDataEndpoint = "https://api-data.line.me"
	DefaultMaxContent   = 10 << 20

	// LINE accepts at most five messages per reply.
	maxReplyMessages = 5
)

var _ channel.Channel = (*Client)(nil)

// Config configures a Client.
type Config struct {
	AccessToken  string
	Endpoint     string  // API host; DefaultEndpoint when empty
	DataEndpoint string  // content host; DefaultDataEndpoint when empty
	RateLimit    float64 // requests per second; <= 0 disables limiting
	MaxContent   int64   // largest accepted download; DefaultMaxContent when <= 0
	HTTPClient   *http.Client
}

// Client talks to the LINE Messaging API.
type Client struct {
	token        string
	endpoint     string
	dataEndpoint string
	maxContent   int64
	http         *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a client.
func NewClient(cfg Config) *Client {
	c := &Client{
		token:        cfg.AccessToken,
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		dataEndpoint: strings.TrimRight(cfg.DataEndpoint, "/"),
		maxContent:   cfg.MaxContent,
		http:         cfg.HTTPClient,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.dataEndpoint == "" {
		c.dataEndpoint = DefaultDataEndpoint
	}
	if c.maxContent <= 0 {
		c.maxContent = DefaultMaxContent
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.RateLimit > 0 {
		burst := max(int(cfg.RateLimit), 1)
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c
}

func (c *Client) Name() string { return Name }

// FetchContent downloads the bytes of an image message.
func (c *Client) FetchContent(ctx context.Context, messageID string) (channel.Content, error) {
	if messageID == "" {
		return channel.Content{}, slotherr.New(slotherr.CodeChannelFetchFailure, "message id is required")
	}
	u := c.dataEndpoint + "/v2/bot/message/" + url.PathEscape(messageID) + "/content"
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return channel.Content{}, slotherr.Wrap(err, slotherr.CodeChannelFetchFailure, "requesting message content",
			slotherr.FieldMessageID(messageID))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return channel.Content{}, slotherr.New(slotherr.CodeChannelFetchFailure,
			fmt.Sprintf("message content returned HTTP %d", resp.StatusCode),
			slotherr.FieldMessageID(messageID))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxContent+1))
	if err != nil {
		return channel.Content{}, slotherr.Wrap(err, slotherr.CodeChannelFetchFailure, "reading message content",
			slotherr.FieldMessageID(messageID))
	}
	if int64(len(data)) > c.maxContent {
		return channel.Content{}, slotherr.New(slotherr.CodeChannelContentTooLarge, "message content too large",
			slotherr.FieldMessageID(messageID), slotherr.Field("max_bytes", c.maxContent))
	}
	return channel.Content{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

type replyRequest struct {
	ReplyToken string         `json:"replyToken"`
	Messages   []replyMessage `json:"messages"`
}

type replyMessage struct {
	Type               string `json:"type"`
	Text               string `json:"text,omitempty"`
	OriginalContentURL string `json:"originalContentUrl,omitempty"`
	PreviewImageURL    string `json:"previewImageUrl,omitempty"`
}

// Reply sends the text (if any) followed by image attachments.
func (c *Client) Reply(ctx context.Context, msg channel.OutboundMessage) error {
	if msg.ReplyToken == "" {
		return slotherr.New(slotherr.CodeChannelReplyFailure, "reply token is required")
	}
	req := replyRequest{ReplyToken: msg.ReplyToken}
	if msg.Text != "" {
		req.Messages = append(req.Messages, replyMessage{Type: "text", Text: msg.Text})
	}
	for _, m := range msg.Media {
		if m.Type != "image" || m.URL == "" {
			continue
		}
		preview := m.PreviewURL
		if preview == "" {
			preview = m.URL
		}
		req.Messages = append(req.Messages, replyMessage{Type: "image", OriginalContentURL: m.URL, PreviewImageURL: preview})
	}
	if len(req.Messages) == 0 {
		return nil
	}
	if len(req.Messages) > maxReplyMessages {
		req.Messages = req.Messages[:maxReplyMessages]
	}

	body, err := json.Marshal(req)
	if err != nil {
		return slotherr.Wrap(err, slotherr.CodeChannelReplyFailure, "encoding reply")
	}
	resp, err := c.do(ctx, http.MethodPost, c.endpoint+"/v2/bot/message/reply", body)
	if err != nil {
		return slotherr.Wrap(err, slotherr.CodeChannelReplyFailure, "sending reply")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return slotherr.New(slotherr.CodeChannelReplyFailure,
			fmt.Sprintf("reply returned HTTP %d", resp.StatusCode),
			slotherr.Field("response", strings.TrimSpace(string(detail))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, method, u string, body []byte) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, slotherr.Wrap(err, slotherr.CodeChannelRateLimitExceeded, "waiting for rate limiter")
		}
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}
