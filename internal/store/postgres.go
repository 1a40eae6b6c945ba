// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

// Package store provides database connectivity and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultConnectTimeout bounds how long Connect keeps retrying.
const DefaultConnectTimeout = 30 * time.Second

// Backoff bounds for PingWithRetry.
const (
	retryBase = 250 * time.Millisecond
	retryCap  = 5 * time.Second
)

// PingFunc checks that a backend is reachable.
type PingFunc func(ctx context.Context) error

// PingWithRetry calls ping with capped exponential backoff until it succeeds,
// timeout elapses or ctx is done. Every failure is treated as retryable.
func PingWithRetry(ctx context.Context, timeout time.Duration, ping PingFunc) error {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	backoff := retry.WithMaxDuration(timeout,
		retry.WithCappedDuration(retryCap, retry.NewExponential(retryBase)))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			slog.DebugContext(ctx, "backend not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORE_UNREACHABLE").
			With("attempts", attempt).
			With("timeout", timeout.String()).
			Wrap(err)
	}
	return nil
}

// Connect opens a pgx pool and waits for the database to answer a ping.
func Connect(ctx context.Context, databaseURL string, timeout time.Duration) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("STORE_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := PingWithRetry(ctx, timeout, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}

	slog.InfoContext(ctx, "connected to database",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database)
	return pool, nil
}
