// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/loginsys/loginsys/internal/auth"
)

// MockAccountRepository is a mock of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

var _ auth.AccountRepository = (*MockAccountRepository)(nil)

// NewMockAccountRepository creates a mock whose expectations are asserted
// when the test finishes.
func NewMockAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FindByUsername provides a mock function.
func (m *MockAccountRepository) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	args := m.Called(ctx, username)
	var account *auth.Account
	if v := args.Get(0); v != nil {
		account = v.(*auth.Account)
	}
	return account, args.Error(1)
}

// InsertIfAbsent provides a mock function.
func (m *MockAccountRepository) InsertIfAbsent(ctx context.Context, account *auth.Account) error {
	return m.Called(ctx, account).Error(0)
}

// UpdateStatus provides a mock function.
func (m *MockAccountRepository) UpdateStatus(ctx context.Context, username string, status auth.Status) error {
	return m.Called(ctx, username, status).Error(0)
}

// UpdatePasswordHash provides a mock function.
func (m *MockAccountRepository) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	return m.Called(ctx, username, passwordHash).Error(0)
}
