// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package auth

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Repository sentinels.
var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by InsertIfAbsent when the username is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnstorable is returned by InsertIfAbsent when the store cannot
	// represent the username.
	ErrUnstorable = errors.New("value cannot be stored")
)

// Service sentinels. Each one corresponds to exactly one Outcome.
var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrUnavailable        = errors.New("service unavailable")
)

// unavailable marks a collaborator failure. The cause stays in the chain for
// logging; callers only ever see ErrUnavailable semantics.
func unavailable(code, operation string, err error) error {
	return oops.Code(code).
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrUnavailable, err))
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}
