// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// RegistrationService creates new accounts.
type RegistrationService struct {
	accounts      AccountRepository
	hasher        PasswordHasher
	validator     CredentialValidator
	initialStatus Status
	logger        *slog.Logger
	now           func() time.Time
}

// NewRegistrationService creates a RegistrationService that logs to slog.Default.
func NewRegistrationService(
	accounts AccountRepository,
	hasher PasswordHasher,
	validator CredentialValidator,
	initialStatus Status,
) (*RegistrationService, error) {
	return NewRegistrationServiceWithLogger(accounts, hasher, validator, initialStatus, slog.Default())
}

// NewRegistrationServiceWithLogger creates a RegistrationService with an
// explicit logger. Every account it creates gets initialStatus.
func NewRegistrationServiceWithLogger(
	accounts AccountRepository,
	hasher PasswordHasher,
	validator CredentialValidator,
	initialStatus Status,
	logger *slog.Logger,
) (*RegistrationService, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if _, err := ParseStatus(string(initialStatus)); err != nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").With("initial_status", string(initialStatus)).Wrap(err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationService{
		accounts:      accounts,
		hasher:        hasher,
		validator:     validator,
		initialStatus: initialStatus,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// InitialStatus returns the status given to newly registered accounts.
func (s *RegistrationService) InitialStatus() Status {
	return s.initialStatus
}

// Register validates the credentials and creates an account.
//
// Errors classify as follows: a *ValidationError is OutcomeBadRequest,
// including a username the store cannot hold. ErrUsernameTaken is
// OutcomeConflict and ErrUnavailable is OutcomeServiceUnavailable. Nothing is written unless the result is success.
func (s *RegistrationService) Register(ctx context.Context, username, password string) (*Account, error) {
	if err := s.validator.Validate(username, password); err != nil {
		return nil, err
	}

	// Fast path for the common duplicate case. InsertIfAbsent below is the
	// authoritative uniqueness check.
	if _, err := s.accounts.FindByUsername(ctx, username); err == nil {
		return nil, usernameTaken(username)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, unavailable("AUTH_REGISTER_FAILED", "find account by username", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, unavailable("AUTH_REGISTER_FAILED", "hash password", err)
	}

	account, err := NewAccount(username, hash, s.initialStatus, s.now().UTC())
	if err != nil {
		return nil, unavailable("AUTH_REGISTER_FAILED", "build account", err)
	}

	if err := s.accounts.InsertIfAbsent(ctx, account); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyExists):
			return nil, usernameTaken(username)
		case errors.Is(err, ErrUnstorable):
			return nil, reject(ReasonInvalidUsername, 0)
		}
		return nil, unavailable("AUTH_REGISTER_FAILED", "insert account", err)
	}

	s.logger.InfoContext(ctx, "account registered",
		"account_id", account.ID.String(),
		"status", account.Status.String())

	return account, nil
}

func usernameTaken(username string) error {
	return oops.Code("AUTH_USERNAME_TAKEN").With("username", username).Wrap(ErrUsernameTaken)
}
