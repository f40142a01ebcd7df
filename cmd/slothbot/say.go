// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <text>",
		Short: "Send one operator command and print the reply",
		Long: `Handle text exactly as if the operator had sent it over LINE, for example:
  slothbot say 分類：娃娃
  slothbot say 命名：小熊
  slothbot say 清單`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSay,
	}
}

func runSay(cmd *cobra.Command, args []string) error {
	return withCore(cmd, func(ctx context.Context, app *App) error {
		reply, err := app.Commands.Handle(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		return err
	})
}
