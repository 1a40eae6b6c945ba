// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

// Package memory provides an in-process account store for development and
// tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/loginsys/loginsys/internal/auth"
)

// AccountRepository implements auth.AccountRepository with a map guarded by a
// mutex. Accounts are copied on the way in and out.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*auth.Account
	now      func() time.Time
}

var _ auth.AccountRepository = (*AccountRepository)(nil)

// NewAccountRepository creates an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[string]*auth.Account),
		now:      time.Now,
	}
}

// FindByUsername returns a copy of the stored account.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").Wrap(err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[username]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	accountCopy := *account
	return &accountCopy, nil
}

// InsertIfAbsent stores a copy of account unless the username is taken.
func (r *AccountRepository) InsertIfAbsent(ctx context.Context, account *auth.Account) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.Username]; ok {
		return oops.Code("ACCOUNT_ALREADY_EXISTS").With("username", account.Username).Wrap(auth.ErrAlreadyExists)
	}
	accountCopy := *account
	r.accounts[account.Username] = &accountCopy
	return nil
}

// UpdateStatus changes the status of a stored account.
func (r *AccountRepository) UpdateStatus(ctx context.Context, username string, status auth.Status) error {
	return r.update(ctx, username, func(a *auth.Account) { a.Status = status })
}

// UpdatePasswordHash replaces the hash of a stored account.
func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	return r.update(ctx, username, func(a *auth.Account) { a.PasswordHash = passwordHash })
}

func (r *AccountRepository) update(ctx context.Context, username string, fn func(*auth.Account)) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").Wrap(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[username]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	fn(account)
	account.UpdatedAt = r.now().UTC()
	return nil
}

// Ping always succeeds unless ctx is done.
func (r *AccountRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored accounts.
func (r *AccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
