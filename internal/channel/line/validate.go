// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package line

import (
	"context"
	"io"
	"net/http"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// ValidateToken calls LINE's bot info endpoint to verify the channel
// access token.
func ValidateToken(ctx context.Context, client *http.Client, token string) error {
	return ValidateTokenWithURL(ctx, client, token, DefaultEndpoint+"/v2/bot/info")
}

// ValidateTokenWithURL is ValidateToken against an explicit URL.
func ValidateTokenWithURL(ctx context.Context, client *http.Client, token, url string) error {
	if token == "" {
		return slotherr.New(slotherr.CodeChannelTokenInvalid, "LINE channel access token is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return slotherr.Errorf(slotherr.CodeChannelTokenCheckFailed, "building LINE validation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return slotherr.Errorf(slotherr.CodeChannelTokenCheckFailed, "validating LINE token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return slotherr.Errorf(slotherr.CodeChannelTokenInvalid, "invalid LINE channel access token (HTTP %d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return slotherr.Errorf(slotherr.CodeChannelTokenCheckFailed, "LINE validation failed (HTTP %d)", resp.StatusCode)
	}
	return nil
}
