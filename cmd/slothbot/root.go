// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slothbot-dev/slothbot/internal/config"
	"github.com/slothbot-dev/slothbot/internal/secrets"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// secretStoreFactory is swapped in tests.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// NewRootCmd creates the root slothbot command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slothbot",
		Short:         "Slothbot, a LINE bot that collects and classifies images",
		Long:          "Slothbot receives images over LINE, stores each distinct image once and walks it through classification, naming and description.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := initViper(cmd); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), viper.GetBool("verbose"), viper.GetString("logging.format"))
			return nil
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newInitCmd(),
		newStartCmd(),
		newStatusCmd(),
		newDoctorCmd(),
		newIngestCmd(),
		newSayCmd(),
		newRecordsCmd(),
		newSecretCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings and an optional config file so the precedence
// flag > env > file > defaults holds everywhere.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return slotherr.Errorf(slotherr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted: with it, viper also tries the bare name,
		// which collides with a ./slothbot binary.
		v.SetConfigName("slothbot")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/slothbot")
		v.AddConfigPath("/etc/slothbot")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return slotherr.Errorf(slotherr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := config.BootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return slotherr.Errorf(slotherr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}

	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return slotherr.Errorf(slotherr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return slotherr.Errorf(slotherr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}
	return nil
}

// loadConfig resolves keyring:// secrets in the global viper and decodes
// the result.
func loadConfig() (*config.Config, error) {
	v := viper.GetViper()
	config.WarnInsecurePermissions(v.ConfigFileUsed())

	if err := secrets.ResolveViperSecrets(v, secretStoreFactory()); err != nil {
		return nil, err
	}
	return config.FromViper(v)
}

func setupLogging(w io.Writer, verbose bool, format string) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// stdinIsTerminal reports whether f is a character device.
func stdinIsTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
