// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/loginsys/loginsys/internal/config"
	"github.com/loginsys/loginsys/internal/store"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmdWithDeps(defaultMigratorFactory)
}

func newMigrateCmdWithDeps(factory MigratorFactory) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the accounts database schema",
		Long: `Apply, roll back or inspect the PostgreSQL schema migrations embedded
in the binary. The database URL comes from --database-url, the config file,
LOGINSYS_STORE_DATABASE_URL or DATABASE_URL.`,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL")

	withMigrator := func(fn func(cmd *cobra.Command, m Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			url, err := resolveDatabaseURL(databaseURL)
			if err != nil {
				return err
			}
			m, err := factory(url)
			if err != nil {
				return oops.Code("DB_CONNECT_FAILED").With("operation", "create migrator").Wrap(err)
			}
			defer func() {
				if closeErr := m.Close(); closeErr != nil {
					slog.Warn("error closing migrator", "error", closeErr)
				}
			}()
			return fn(cmd, m, args)
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			if err := m.Up(); err != nil {
				return err
			}
			cmd.Println("Migrations applied")
			return printVersion(cmd, m)
		}),
	})

	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration (--all for every migration)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			var err error
			if all {
				err = m.Down()
			} else {
				err = m.Steps(-1)
			}
			if err != nil {
				return err
			}
			cmd.Println("Rollback complete")
			return printVersion(cmd, m)
		}),
	}
	down.Flags().BoolVar(&all, "all", false, "roll back every migration (drops the accounts table)")
	cmd.AddCommand(down)

	var jsonOutput bool
	status := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, _ []string) error {
			st, err := m.Status()
			if err != nil {
				return err
			}
			if jsonOutput {
				out, err := json.MarshalIndent(st, "", "  ")
				if err != nil {
					return oops.Wrap(err)
				}
				cmd.Println(string(out))
				return nil
			}
			cmd.Println(formatMigrationStatus(st))
			return nil
		}),
	}
	status.Flags().BoolVar(&jsonOutput, "json", false, "output status as JSON")
	cmd.AddCommand(status)

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it (dirty-state recovery)",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m Migrator, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			cmd.Printf("Forced version %d\n", version)
			return nil
		}),
	})

	return cmd
}

// resolveDatabaseURL prefers the flag, then the loaded configuration.
func resolveDatabaseURL(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.Load(configPath(), nil)
	if err != nil {
		return "", err
	}
	if cfg.Store.DatabaseURL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("database URL is required")
	}
	return cfg.Store.DatabaseURL, nil
}

func parseForceVersion(s string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	if version < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative")
	}
	return version, nil
}

func printVersion(cmd *cobra.Command, m Migrator) error {
	st, err := m.Status()
	if err != nil {
		return err
	}
	cmd.Printf("Current version: %d\n", st.Version)
	return nil
}

func formatMigrationStatus(st *store.MigrationStatus) string {
	var b strings.Builder
	current := "none"
	if st.Version > 0 {
		current = strconv.FormatUint(uint64(st.Version), 10)
		if st.Name != "" {
			current += " (" + st.Name + ")"
		}
	}
	fmt.Fprintf(&b, "Current version: %s\n", current)
	if st.Dirty {
		b.WriteString("State: DIRTY (run 'loginsys migrate force VERSION' after fixing the schema)\n")
	}
	fmt.Fprintf(&b, "Applied: %d\n", len(st.Applied))
	fmt.Fprintf(&b, "Pending: %d", len(st.Pending))
	for _, v := range st.Pending {
		name, err := store.MigrationName(v)
		if err != nil || name == "" {
			name = strconv.FormatUint(uint64(v), 10)
		}
		fmt.Fprintf(&b, "\n  %s", name)
	}
	return b.String()
}
