// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// defaultHTTPClient is used by commands that talk to a running server.
var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

// serverClient provides HTTP access to a running slothbot server.
type serverClient struct {
	baseURL string
	http    *http.Client
}

func newServerClient(addr string) *serverClient {
	return &serverClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON GETs path and decodes the JSON body into dest. A refused
// connection is reported with CodeCLIServerNotRunning.
func (c *serverClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		if isDialError(err) {
			return slotherr.New(slotherr.CodeCLIServerNotRunning, "server is not running (connection refused)")
		}
		return slotherr.Errorf(slotherr.CodeCLIRequestFailure, "request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return slotherr.Errorf(slotherr.CodeCLIRequestFailure, "server returned status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return slotherr.Errorf(slotherr.CodeCLIResponseInvalid, "invalid response: %w", err)
	}
	return nil
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
