// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/loginsys/loginsys/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the loginsys CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loginsys",
		Short: "loginsys - account registration and login service",
		Long: `loginsys registers user accounts and authenticates them over a JSON
HTTP API, backed by PostgreSQL, Redis or an in-memory store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAccountCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}

// configPath returns --config, or the XDG default file when the flag is unset.
func configPath() string {
	if configFile != "" {
		return configFile
	}
	return xdg.DefaultConfigFile()
}
