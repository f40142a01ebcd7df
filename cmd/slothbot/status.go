// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/slothbot-dev/slothbot/internal/server"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

const defaultAddress = "127.0.0.1:18790"

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bot status",
		Long:  "Query a running bot's status endpoint and print record counts per status.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", defaultAddress, "server address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var body server.StatusBody
	if err := newServerClient(addr).getJSON("/api/v1/status", &body); err != nil {
		if slotherr.HasCode(err, slotherr.CodeCLIServerNotRunning) {
			_, _ = fmt.Fprintf(out, "Slothbot at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Slothbot at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Slothbot at %s: %s (version %s)\n", addr, body.Status, body.Version)
	statuses := make([]string, 0, len(body.Records))
	for s := range body.Records {
		statuses = append(statuses, s)
	}
	slices.Sort(statuses)
	for _, s := range statuses {
		_, _ = fmt.Fprintf(out, "  %-12s %d\n", s+":", body.Records[s])
	}
	_, _ = fmt.Fprintf(out, "  %-12s %d\n", "total:", body.Total)
	return nil
}
