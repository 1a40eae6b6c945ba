// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Status is the activation state of an account. Only StatusActive may log in.
type Status string

// Account statuses.
const (
	StatusActive            Status = "active"
	StatusPendingActivation Status = "pending_activation"
	StatusSuspended         Status = "suspended"
)

// ParseStatus converts a stored or configured value into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusPendingActivation, StatusSuspended:
		return st, nil
	default:
		return "", oops.Code("AUTH_INVALID_STATUS").
			With("status", s).
			Errorf("unknown account status %q", s)
	}
}

// CanLogin reports whether an account in this status may authenticate.
func (s Status) CanLogin() bool {
	return s == StatusActive
}

func (s Status) String() string {
	return string(s)
}

// Account represents a registered identity.
type Account struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated Account with a fresh ID.
func NewAccount(username, passwordHash string, status Status, now time.Time) (*Account, error) {
	if strings.TrimSpace(username) == "" {
		return nil, oops.Code("ACCOUNT_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}

	return &Account{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AccountRepository manages account persistence.
//
// Username matching is exact and case-sensitive.
type AccountRepository interface {
	// FindByUsername retrieves an account.
	// Returns ErrNotFound if no account has the given username.
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// InsertIfAbsent stores a new account unless its username is taken, in
	// which case it returns ErrAlreadyExists. The check and the insert are
	// atomic with respect to concurrent inserts of the same username.
	InsertIfAbsent(ctx context.Context, account *Account) error

	// UpdateStatus changes the status of an existing account.
	// Returns ErrNotFound if no account has the given username.
	UpdateStatus(ctx context.Context, username string, status Status) error

	// UpdatePasswordHash replaces the stored hash of an existing account.
	// Returns ErrNotFound if no account has the given username.
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
}
