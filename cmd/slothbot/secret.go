// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slothbot-dev/slothbot/internal/secrets"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials stored in the OS keyring",
		Long: `List, set and delete secrets stored under the slothbot keyring service.
Reference a stored secret from the config as keyring://slothbot/<name>.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored secret names",
			Args:  cobra.NoArgs,
			RunE:  runSecretList,
		},
		&cobra.Command{
			Use:   "set <name>",
			Short: "Store a secret read from stdin",
			Long: "Store a secret read from stdin. Well-known names: " +
				strings.Join(wellKnownSecrets(), ", ") + ".",
			Args: cobra.ExactArgs(1),
			RunE: runSecretSet,
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a secret by name",
			Args:  cobra.ExactArgs(1),
			RunE:  runSecretDelete,
		},
	)
	return cmd
}

func wellKnownSecrets() []string {
	names := make([]string, 0, len(secrets.ConfigKeys))
	for name := range secrets.ConfigKeys {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func runSecretList(cmd *cobra.Command, _ []string) error {
	keys, err := secretStoreFactory().List(secrets.Service)
	if err != nil {
		return slotherr.Wrap(err, slotherr.CodeSecretStoreFailure, "listing secrets")
	}

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		_, _ = fmt.Fprintln(out, "No secrets stored.")
		return nil
	}
	for _, k := range keys {
		if configKey, ok := secrets.ConfigKeys[k]; ok {
			_, _ = fmt.Fprintf(out, "%s (%s)\n", k, configKey)
			continue
		}
		_, _ = fmt.Fprintln(out, k)
	}
	return nil
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
	if err != nil {
		return slotherr.Errorf(slotherr.CodeCLIInputInvalid, "reading secret from stdin: %w", err)
	}
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return slotherr.New(slotherr.CodeCLIInputInvalid, "secret value from stdin is empty")
	}
	if err := secretStoreFactory().Store(secrets.Service, name, value); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored secret %s; reference it as %s\n", name, secrets.Ref(name))
	return nil
}

func runSecretDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := secretStoreFactory().Delete(secrets.Service, name); err != nil {
		if slotherr.HasCode(err, slotherr.CodeSecretNotFound) {
			return slotherr.Errorf(slotherr.CodeSecretNotFound, "secret %q not found", name)
		}
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted secret: %s\n", name)
	return nil
}
