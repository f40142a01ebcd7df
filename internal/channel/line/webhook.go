// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/slothbot-dev/slothbot/internal/channel"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// SignatureHeader carries the webhook body signature.
const SignatureHeader = "X-Line-Signature"

// Sign returns the base64 HMAC-SHA256 of body keyed by the channel secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return slotherr.New(slotherr.CodeChannelSignatureInvalid, "channel secret is not configured")
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || signature == "" {
		return slotherr.New(slotherr.CodeChannelSignatureInvalid, "malformed webhook signature")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return slotherr.New(slotherr.CodeChannelSignatureInvalid, "webhook signature mismatch")
	}
	return nil
}

// Webhook verifies and parses LINE callbacks for a channel secret.
type Webhook struct {
	Secret string
}

func (w Webhook) Verify(header http.Header, body []byte) error {
	return VerifySignature(w.Secret, body, header.Get(SignatureHeader))
}

func (w Webhook) Parse(body []byte) ([]channel.Event, error) {
	return ParseWebhook(body)
}

type webhookBody struct {
	Destination string         `json:"destination"`
	Events      []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Timestamp  int64  `json:"timestamp"`
	Source     struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"message"`
}

// ParseWebhook extracts text and image message events. Other event and
// message types (follow, sticker, video...) are dropped.
func ParseWebhook(body []byte) ([]channel.Event, error) {
	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, slotherr.Wrap(err, slotherr.CodeChannelPayloadInvalid, "decoding webhook body")
	}

	events := make([]channel.Event, 0, len(wb.Events))
	for _, e := range wb.Events {
		if e.Type != "message" || e.Message == nil {
			continue
		}
		ev := channel.Event{
			Channel:    Name,
			MessageID:  e.Message.ID,
			ReplyToken: e.ReplyToken,
			UserID:     e.Source.UserID,
			Timestamp:  time.UnixMilli(e.Timestamp),
		}
		switch e.Message.Type {
		case "text":
			ev.Kind = channel.EventText
			ev.Text = e.Message.Text
		case "image":
			ev.Kind = channel.EventImage
		default:
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
