// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/loginsys/loginsys/internal/api"
	"github.com/loginsys/loginsys/internal/auth"
	"github.com/loginsys/loginsys/internal/config"
	"github.com/loginsys/loginsys/internal/logging"
	"github.com/loginsys/loginsys/internal/observability"
)

const serviceName = "loginsys"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var gops bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the authentication API",
		Long: `Run the HTTP API for registration and login, plus the metrics and
health probe listener. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath(), cmd.Flags())
			if err != nil {
				return err
			}
			if gops {
				if err := agent.Listen(agent.Options{}); err != nil {
					return oops.Code("GOPS_FAILED").Wrap(err)
				}
				defer agent.Close()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&gops, "gops", false, "start the gops diagnostics agent")

	return cmd
}

// runServeWithDeps runs the service until ctx is cancelled or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = openStore
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = defaultMigratorFactory
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})

	logger.Info("starting loginsys",
		"http_addr", cfg.HTTP.Addr,
		"store", cfg.Store.Driver,
	)

	if cfg.Store.AutoMigrate && cfg.Store.Driver == config.DriverPostgres {
		if err := applyMigrations(deps.MigratorFactory, cfg.Store.DatabaseURL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	accountStore, err := deps.StoreFactory(ctx, cfg.Store)
	if err != nil {
		return oops.Code("STORE_OPEN_FAILED").With("driver", cfg.Store.Driver).Wrap(err)
	}
	defer accountStore.Close()
	logger.Info("account store ready", "driver", cfg.Store.Driver)

	initial, err := auth.ParseStatus(cfg.Registration.InitialStatus)
	if err != nil {
		return err
	}
	hasher := auth.NewArgon2idHasherWithParams(auth.HashParams{
		Time:      cfg.Hash.Time,
		MemoryKiB: cfg.Hash.MemoryKiB,
		Threads:   cfg.Hash.Threads,
	})
	validator := auth.NewCredentialValidator(cfg.Password.MinLength)

	registration, err := auth.NewRegistrationServiceWithLogger(accountStore.Accounts, hasher, validator, initial, logger)
	if err != nil {
		return err
	}
	logger.Info("registration ready", "initial_status", registration.InitialStatus().String())

	authentication, err := auth.NewAuthenticationServiceWithLogger(accountStore.Accounts, hasher, validator, logger)
	if err != nil {
		return err
	}

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	apiServer, err := api.NewServer(api.Options{
		Addr:           cfg.HTTP.Addr,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		BodyLimit:      cfg.HTTP.BodyLimit,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		Registrar:      registration,
		Authenticator:  authentication,
		Store:          pingFunc(accountStore.Ping),
		Recorder:       metrics,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, registry, accountStore.Ping)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopServer(cfg, "api", apiServer.Stop)
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	if deps.Ready != nil {
		addrs := ServeAddrs{API: apiServer.Addr()}
		if obsServer != nil {
			addrs.Metrics = obsServer.Addr()
		}
		deps.Ready <- addrs
	}

	cmd.Println("loginsys started")
	<-ctx.Done()

	logger.Info("shutting down")
	stopServer(cfg, "api", apiServer.Stop)
	if obsServer != nil {
		stopServer(cfg, "observability", obsServer.Stop)
	}
	logger.Info("shutdown complete")
	return nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func stopServer(cfg *config.Config, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		slog.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports a serve error. It
// returns when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
