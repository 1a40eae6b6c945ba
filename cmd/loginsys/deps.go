// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/loginsys/loginsys/internal/auth"
	"github.com/loginsys/loginsys/internal/auth/memory"
	"github.com/loginsys/loginsys/internal/auth/postgres"
	"github.com/loginsys/loginsys/internal/auth/redisstore"
	"github.com/loginsys/loginsys/internal/config"
	"github.com/loginsys/loginsys/internal/store"
)

// AccountStore is an opened account repository with its health check and
// teardown.
type AccountStore struct {
	Accounts auth.AccountRepository
	Ping     func(ctx context.Context) error
	Close    func()
}

// StoreFactory opens the configured account store.
type StoreFactory func(ctx context.Context, cfg config.StoreConfig) (*AccountStore, error)

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.MigrationStatus, error)
	Close() error
}

// MigratorFactory creates a migrator for a database URL.
type MigratorFactory func(databaseURL string) (Migrator, error)

// ServeDeps contains injectable dependencies for the serve command.
// Nil fields use their default implementations.
type ServeDeps struct {
	// StoreFactory opens the account store.
	// Default: openStore
	StoreFactory StoreFactory

	// MigratorFactory is used when store.auto_migrate is set.
	// Default: store.NewMigrator
	MigratorFactory MigratorFactory

	// Ready, if set, receives the bound addresses once the listeners are up.
	Ready chan<- ServeAddrs
}

// ServeAddrs are the bound listener addresses of a running serve command.
type ServeAddrs struct {
	API     string
	Metrics string
}

func defaultMigratorFactory(databaseURL string) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// openStore connects to the store selected by cfg.Driver. Connection
// attempts are retried until cfg.ConnectTimeout.
func openStore(ctx context.Context, cfg config.StoreConfig) (*AccountStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := store.Connect(ctx, cfg.DatabaseURL, cfg.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		repo := postgres.NewAccountRepository(pool)
		return &AccountStore{Accounts: repo, Ping: repo.Ping, Close: pool.Close}, nil

	case config.DriverRedis:
		pool := redisstore.NewPool(cfg.RedisAddr)
		repo := redisstore.NewAccountRepository(pool)
		if err := store.PingWithRetry(ctx, cfg.ConnectTimeout, repo.Ping); err != nil {
			closePool(pool.Close)
			return nil, oops.With("addr", cfg.RedisAddr).Wrap(err)
		}
		return &AccountStore{Accounts: repo, Ping: repo.Ping, Close: func() { closePool(pool.Close) }}, nil

	case config.DriverMemory:
		repo := memory.NewAccountRepository()
		return &AccountStore{Accounts: repo, Ping: repo.Ping, Close: func() {}}, nil

	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Driver).Errorf("unknown store driver")
	}
}

func closePool(closeFn func() error) {
	if err := closeFn(); err != nil {
		slog.Debug("error closing redis pool", "error", err)
	}
}

// applyMigrations brings the schema up to date.
func applyMigrations(factory MigratorFactory, databaseURL string) error {
	m, err := factory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
	}
	return nil
}
