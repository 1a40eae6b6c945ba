// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/samber/oops"
)

// dummyPassword is hashed once to produce a digest that unknown usernames are
// verified against, so both failure paths cost one full verification.
//
//nolint:gosec // G101: not a credential.
const dummyPassword = "loginsys-dummy-password"

// AuthenticationService verifies credentials.
type AuthenticationService struct {
	accounts  AccountRepository
	hasher    PasswordHasher
	validator CredentialValidator
	logger    *slog.Logger

	dummyOnce sync.Once
	dummyHash string
	dummyErr  error
}

// NewAuthenticationService creates an AuthenticationService that logs to slog.Default.
func NewAuthenticationService(
	accounts AccountRepository,
	hasher PasswordHasher,
	validator CredentialValidator,
) (*AuthenticationService, error) {
	return NewAuthenticationServiceWithLogger(accounts, hasher, validator, slog.Default())
}

// NewAuthenticationServiceWithLogger creates an AuthenticationService with an
// explicit logger.
func NewAuthenticationServiceWithLogger(
	accounts AccountRepository,
	hasher PasswordHasher,
	validator CredentialValidator,
	logger *slog.Logger,
) (*AuthenticationService, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthenticationService{
		accounts:  accounts,
		hasher:    hasher,
		validator: validator,
		logger:    logger,
	}, nil
}

// Login checks the credentials and returns the account on success.
//
// Unknown usernames and wrong passwords both return ErrInvalidCredentials.
// Correct credentials for a non-active account return ErrAccountInactive.
// Store and hasher failures return ErrUnavailable. Login never changes an
// account's status.
func (s *AuthenticationService) Login(ctx context.Context, username, password string) (*Account, error) {
	if err := s.validator.Validate(username, password); err != nil {
		return nil, err
	}

	account, lookupErr := s.accounts.FindByUsername(ctx, username)

	var targetHash string
	exists := lookupErr == nil
	switch {
	case exists:
		targetHash = account.PasswordHash
	case errors.Is(lookupErr, ErrNotFound):
		hash, err := s.dummy()
		if err != nil {
			return nil, unavailable("AUTH_LOGIN_FAILED", "prepare dummy hash", err)
		}
		targetHash = hash
	default:
		return nil, unavailable("AUTH_LOGIN_FAILED", "find account by username", lookupErr)
	}

	// Always verify, even for unknown users.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !exists {
			return nil, invalidCredentials()
		}
		return nil, unavailable("AUTH_LOGIN_FAILED", "verify password", verifyErr)
	}

	if !exists || !valid {
		s.logger.DebugContext(ctx, "login rejected", "reason", "invalid_credentials")
		return nil, invalidCredentials()
	}

	// Status is checked after verification so an inactive account is only
	// revealed to a caller who knows the password.
	if !account.Status.CanLogin() {
		s.logger.InfoContext(ctx, "login rejected for inactive account",
			"account_id", account.ID.String(),
			"status", account.Status.String())
		return nil, oops.Code("AUTH_ACCOUNT_INACTIVE").
			With("status", account.Status.String()).
			Wrap(ErrAccountInactive)
	}

	s.upgradeHash(ctx, account, password)

	return account, nil
}

// upgradeHash re-hashes legacy digests. Failures are logged; the login still
// succeeds.
func (s *AuthenticationService) upgradeHash(ctx context.Context, account *Account, password string) {
	if !s.hasher.NeedsUpgrade(account.PasswordHash) {
		return
	}
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			"account_id", account.ID.String(),
			"operation", "hash password",
			"error", err.Error())
		return
	}
	if err := s.accounts.UpdatePasswordHash(ctx, account.Username, newHash); err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			"account_id", account.ID.String(),
			"operation", "update password hash",
			"error", err.Error())
		return
	}
	account.PasswordHash = newHash
	s.logger.InfoContext(ctx, "password hash upgraded", "account_id", account.ID.String())
}

func (s *AuthenticationService) dummy() (string, error) {
	s.dummyOnce.Do(func() {
		s.dummyHash, s.dummyErr = s.hasher.Hash(dummyPassword)
	})
	return s.dummyHash, s.dummyErr
}
