// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// AdminService performs operator actions on accounts. It is the only place
// an account's status changes.
type AdminService struct {
	accounts AccountRepository
	logger   *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(accounts AccountRepository, logger *slog.Logger) (*AdminService, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("account repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{accounts: accounts, logger: logger}, nil
}

// SetStatus moves an account to status.
// Returns an error wrapping ErrNotFound if the username is unknown.
func (s *AdminService) SetStatus(ctx context.Context, username string, status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	if err := s.accounts.UpdateStatus(ctx, username, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("AUTH_ACCOUNT_NOT_FOUND").With("username", username).Wrap(ErrNotFound)
		}
		return unavailable("AUTH_STATUS_UPDATE_FAILED", "update status", err)
	}
	s.logger.InfoContext(ctx, "account status changed", "username", username, "status", status.String())
	return nil
}

// Lookup returns the account with the given username.
func (s *AdminService) Lookup(ctx context.Context, username string) (*Account, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").With("username", username).Wrap(ErrNotFound)
		}
		return nil, unavailable("AUTH_LOOKUP_FAILED", "find account by username", err)
	}
	return account, nil
}
