// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package redisstore_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loginsys/loginsys/internal/auth"
	"github.com/loginsys/loginsys/internal/auth/redisstore"
)

func newRepo(t *testing.T) (*redisstore.AccountRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	pool := redisstore.NewPool(mr.Addr())
	t.Cleanup(func() { _ = pool.Close() })
	return redisstore.NewAccountRepository(pool), mr
}

func newAccount(t *testing.T, username string) *auth.Account {
	t.Helper()
	account, err := auth.NewAccount(username, "digest", auth.StatusPendingActivation,
		time.Now().UTC().Truncate(time.Millisecond))
	require.NoError(t, err)
	return account
}

func TestAccountRepository_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRepo(t)
	account := newAccount(t, "alice")

	require.NoError(t, repo.InsertIfAbsent(ctx, account))
	assert.True(t, mr.Exists(redisstore.KeyPrefix+"alice"))

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)
	assert.Equal(t, "digest", found.PasswordHash)
	assert.Equal(t, auth.StatusPendingActivation, found.Status)
	assert.True(t, account.CreatedAt.Equal(found.CreatedAt))

	_, err = repo.FindByUsername(ctx, "Alice")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestAccountRepository_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	first := newAccount(t, "alice")
	require.NoError(t, repo.InsertIfAbsent(ctx, first))

	err := repo.InsertIfAbsent(ctx, newAccount(t, "alice"))
	assert.ErrorIs(t, err, auth.ErrAlreadyExists)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestAccountRepository_Updates(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRepo(t)
	require.NoError(t, repo.InsertIfAbsent(ctx, newAccount(t, "alice")))

	require.NoError(t, repo.UpdateStatus(ctx, "alice", auth.StatusActive))
	require.NoError(t, repo.UpdatePasswordHash(ctx, "alice", "fresh/digest"))

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusActive, found.Status)
	assert.Equal(t, "fresh/digest", found.PasswordHash)

	raw, err := mr.Get(redisstore.KeyPrefix + "alice")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, "active", doc["status"])

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "bob", auth.StatusActive), auth.ErrNotFound)
	assert.ErrorIs(t, repo.UpdatePasswordHash(ctx, "bob", "x"), auth.ErrNotFound)
}

type traceKey struct{}

// tracingConn records the commands issued with a context carrying traceKey.
type tracingConn struct {
	redis.Conn
	mu   sync.Mutex
	cmds []string
}

func (c *tracingConn) DoContext(ctx context.Context, cmd string, args ...any) (any, error) {
	if ctx.Value(traceKey{}) != nil {
		c.mu.Lock()
		c.cmds = append(c.cmds, cmd)
		c.mu.Unlock()
	}
	return redis.DoContext(c.Conn, ctx, cmd, args...)
}

func (c *tracingConn) ReceiveContext(ctx context.Context) (any, error) {
	return redis.ReceiveContext(c.Conn, ctx)
}

func (c *tracingConn) commands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.cmds...)
}

func TestAccountRepository_UpdatesUseRequestContext(t *testing.T) {
	mr := miniredis.RunT(t)
	traced := &tracingConn{}
	pool := &redis.Pool{
		MaxIdle: 1,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			conn, err := redis.DialContext(ctx, "tcp", mr.Addr())
			if err != nil {
				return nil, err
			}
			traced.Conn = conn
			return traced, nil
		},
	}
	t.Cleanup(func() { _ = pool.Close() })
	repo := redisstore.NewAccountRepository(pool)

	require.NoError(t, repo.InsertIfAbsent(context.Background(), newAccount(t, "alice")))

	ctx := context.WithValue(context.Background(), traceKey{}, true)
	require.NoError(t, repo.UpdateStatus(ctx, "alice", auth.StatusActive))
	require.NoError(t, repo.UpdatePasswordHash(ctx, "alice", "fresh"))

	// EVALSHA falls back to EVAL the first time the script is seen.
	cmds := traced.commands()
	require.GreaterOrEqual(t, len(cmds), 2)
	for _, cmd := range cmds {
		assert.Contains(t, []string{"EVALSHA", "EVAL"}, cmd)
	}
}

func TestAccountRepository_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRepo(t)
	require.NoError(t, mr.Set(redisstore.KeyPrefix+"alice", "{not json"))

	_, err := repo.FindByUsername(ctx, "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrNotFound)
}

func TestAccountRepository_ServerDown(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	pool := redisstore.NewPool(mr.Addr())
	defer pool.Close()
	repo := redisstore.NewAccountRepository(pool)
	require.NoError(t, repo.Ping(ctx))

	mr.Close()

	_, err = repo.FindByUsername(ctx, "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrNotFound)
	assert.Error(t, repo.Ping(ctx))
	assert.Error(t, repo.InsertIfAbsent(ctx, newAccount(t, "alice")))
}

func TestAccountRepository_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	const n = 16
	var created, conflicts atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := repo.InsertIfAbsent(ctx, newAccount(t, "racer")); {
			case err == nil:
				created.Add(1)
			case assert.ErrorIs(t, err, auth.ErrAlreadyExists):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
}
