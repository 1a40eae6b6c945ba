// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

// Package redisstore implements auth.AccountRepository on Redis. Each account
// is a JSON document under loginsys:account:<username>.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/loginsys/loginsys/internal/auth"
)

// KeyPrefix namespaces account keys.
const KeyPrefix = "loginsys:account:"

// updateField rewrites one field of a stored document plus updated_at.
// Returns 0 if the key does not exist.
var updateField = redis.NewScript(1, `
local raw = redis.call('GET', KEYS[1])
if not raw then
  return 0
end
local doc = cjson.decode(raw)
doc[ARGV[1]] = ARGV[2]
doc['updated_at'] = ARGV[3]
redis.call('SET', KEYS[1], cjson.encode(doc))
return 1
`)

type record struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountRepository implements auth.AccountRepository on a redigo pool.
type AccountRepository struct {
	pool *redis.Pool
	now  func() time.Time
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewPool creates a connection pool for addr.
func NewPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     8,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr,
				redis.DialConnectTimeout(5*time.Second),
				redis.DialReadTimeout(5*time.Second),
				redis.DialWriteTimeout(5*time.Second))
		},
		TestOnBorrow: func(c redis.Conn, idleSince time.Time) error {
			if time.Since(idleSince) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// NewAccountRepository creates a repository on pool.
func NewAccountRepository(pool *redis.Pool) *AccountRepository {
	return &AccountRepository{pool: pool, now: time.Now}
}

func key(username string) string {
	return KeyPrefix + username
}

// FindByUsername loads and decodes an account document.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("operation", "get connection").Wrap(err)
	}
	defer conn.Close()

	raw, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", key(username)))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return nil, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
		}
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("operation", "get account").Wrap(err)
	}
	return decode(raw)
}

// InsertIfAbsent writes the account with SET NX.
func (r *AccountRepository) InsertIfAbsent(ctx context.Context, account *auth.Account) error {
	data, err := json.Marshal(record{
		ID:           account.ID.String(),
		Username:     account.Username,
		PasswordHash: account.PasswordHash,
		Status:       string(account.Status),
		CreatedAt:    account.CreatedAt.UTC(),
		UpdatedAt:    account.UpdatedAt.UTC(),
	})
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").With("operation", "encode account").Wrap(err)
	}

	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").With("operation", "get connection").Wrap(err)
	}
	defer conn.Close()

	_, err = redis.String(redis.DoContext(conn, ctx, "SET", key(account.Username), data, "NX"))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return oops.Code("ACCOUNT_ALREADY_EXISTS").With("username", account.Username).Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").With("operation", "set account").Wrap(err)
	}
	return nil
}

// UpdateStatus changes the status field of a stored account.
func (r *AccountRepository) UpdateStatus(ctx context.Context, username string, status auth.Status) error {
	return r.update(ctx, username, "status", string(status))
}

// UpdatePasswordHash replaces the password_hash field of a stored account.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	return r.update(ctx, username, "password_hash", passwordHash)
}

func (r *AccountRepository) update(ctx context.Context, username, field, value string) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "get connection").Wrap(err)
	}
	defer conn.Close()

	updatedAt := r.now().UTC().Format(time.RFC3339Nano)
	n, err := redis.Int(updateField.DoContext(ctx, conn, key(username), field, value, updatedAt))
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", "update "+field).Wrap(err)
	}
	if n == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Ping checks that Redis answers.
func (r *AccountRepository) Ping(ctx context.Context) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return oops.Code("ACCOUNT_STORE_UNREACHABLE").Wrap(err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "PING"); err != nil {
		return oops.Code("ACCOUNT_STORE_UNREACHABLE").Wrap(err)
	}
	return nil
}

func decode(raw []byte) (*auth.Account, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT").With("field", "document").Wrap(err)
	}
	id, err := ulid.Parse(rec.ID)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT").With("field", "id").Wrap(err)
	}
	status, err := auth.ParseStatus(rec.Status)
	if err != nil {
		return nil, oops.Code("ACCOUNT_CORRUPT").With("field", "status").Wrap(err)
	}
	return &auth.Account{
		ID:           id,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Status:       status,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}
