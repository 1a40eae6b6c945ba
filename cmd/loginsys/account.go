// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/loginsys/loginsys/internal/auth"
	"github.com/loginsys/loginsys/internal/config"
)

// NewAccountCmd creates the account administration command group.
func NewAccountCmd() *cobra.Command {
	return newAccountCmdWithDeps(openStore)
}

func newAccountCmdWithDeps(factory StoreFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Administer accounts",
		Long: `Change the activation status of an account or show its details. These
commands are the only way an account's status changes after registration.`,
	}
	config.RegisterFlags(cmd.PersistentFlags())

	withAdmin := func(fn func(ctx context.Context, cmd *cobra.Command, admin *auth.AdminService, username string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(), cmd.Flags())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			accountStore, err := factory(ctx, cfg.Store)
			if err != nil {
				return oops.Code("STORE_OPEN_FAILED").With("driver", cfg.Store.Driver).Wrap(err)
			}
			defer accountStore.Close()

			admin, err := auth.NewAdminService(accountStore.Accounts, slog.Default())
			if err != nil {
				return err
			}
			err = fn(ctx, cmd, admin, args[0])
			if auth.Classify(err) == auth.OutcomeNotFound {
				return oops.With("username", args[0]).Wrapf(err, "no account named %q", args[0])
			}
			return err
		}
	}

	setStatus := func(status auth.Status) func(context.Context, *cobra.Command, *auth.AdminService, string) error {
		return func(ctx context.Context, cmd *cobra.Command, admin *auth.AdminService, username string) error {
			if err := admin.SetStatus(ctx, username, status); err != nil {
				return err
			}
			cmd.Printf("Account %q is now %s\n", username, status)
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "activate USERNAME",
		Short: "Allow an account to log in",
		Args:  cobra.ExactArgs(1),
		RunE:  withAdmin(setStatus(auth.StatusActive)),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "suspend USERNAME",
		Short: "Block an account from logging in",
		Args:  cobra.ExactArgs(1),
		RunE:  withAdmin(setStatus(auth.StatusSuspended)),
	})

	var jsonOutput bool
	show := &cobra.Command{
		Use:   "show USERNAME",
		Short: "Show an account",
		Args:  cobra.ExactArgs(1),
		RunE: withAdmin(func(ctx context.Context, cmd *cobra.Command, admin *auth.AdminService, username string) error {
			account, err := admin.Lookup(ctx, username)
			if err != nil {
				return err
			}
			out, err := formatAccount(account, jsonOutput)
			if err != nil {
				return err
			}
			cmd.Println(out)
			return nil
		}),
	}
	show.Flags().BoolVar(&jsonOutput, "json", false, "output the account as JSON")
	cmd.AddCommand(show)

	return cmd
}

type accountOutput struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func formatAccount(a *auth.Account, asJSON bool) (string, error) {
	out := accountOutput{
		ID:        a.ID.String(),
		Username:  a.Username,
		Status:    a.Status.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if asJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", oops.Wrap(err)
		}
		return string(data), nil
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%s\n", out.ID)
	fmt.Fprintf(w, "Username\t%s\n", out.Username)
	fmt.Fprintf(w, "Status\t%s\n", out.Status)
	fmt.Fprintf(w, "Created\t%s\n", out.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Updated\t%s", out.UpdatedAt.Format(time.RFC3339))
	if err := w.Flush(); err != nil {
		return "", oops.Wrap(err)
	}
	return b.String(), nil
}
