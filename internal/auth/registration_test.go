// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loginsys/loginsys/internal/auth"
	"github.com/loginsys/loginsys/internal/auth/memory"
	"github.com/loginsys/loginsys/internal/auth/mocks"
)

func TestNewRegistrationService_InvalidConfig(t *testing.T) {
	tests := []struct {
		name          string
		accounts      auth.AccountRepository
		hasher        auth.PasswordHasher
		initialStatus auth.Status
		expectError   string
	}{
		{
			name:          "nil account repository",
			hasher:        mocks.NewMockPasswordHasher(t),
			initialStatus: auth.StatusActive,
			expectError:   "account repository is required",
		},
		{
			name:          "nil password hasher",
			accounts:      mocks.NewMockAccountRepository(t),
			initialStatus: auth.StatusActive,
			expectError:   "password hasher is required",
		},
		{
			name:          "unknown initial status",
			accounts:      mocks.NewMockAccountRepository(t),
			hasher:        mocks.NewMockPasswordHasher(t),
			initialStatus: auth.Status("enabled"),
			expectError:   "unknown account status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewRegistrationService(tt.accounts, tt.hasher, auth.NewCredentialValidator(6), tt.initialStatus)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func newRegistration(t *testing.T, accounts auth.AccountRepository, hasher auth.PasswordHasher) *auth.RegistrationService {
	t.Helper()
	svc, err := auth.NewRegistrationService(accounts, hasher, auth.NewCredentialValidator(6), auth.StatusPendingActivation)
	require.NoError(t, err)
	return svc
}

func TestRegistrationService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc := newRegistration(t, accounts, hasher)

		accounts.On("FindByUsername", mock.Anything, "test").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "123456").Return("digest", nil)
		accounts.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(a *auth.Account) bool {
			return a.Username == "test" &&
				a.PasswordHash == "digest" &&
				a.Status == auth.StatusPendingActivation &&
				!a.CreatedAt.IsZero()
		})).Return(nil)

		account, err := svc.Register(ctx, "test", "123456")
		require.NoError(t, err)
		assert.Equal(t, "test", account.Username)
		assert.Equal(t, auth.StatusPendingActivation, account.Status)
		assert.Equal(t, auth.StatusPendingActivation, svc.InitialStatus())
	})

	t.Run("validation precedes storage access", func(t *testing.T) {
		svc := newRegistration(t, mocks.NewMockAccountRepository(t), mocks.NewMockPasswordHasher(t))

		_, err := svc.Register(ctx, "", "123456")
		assert.Equal(t, auth.OutcomeBadRequest, auth.Classify(err))
		assert.Equal(t, auth.ReasonMissingUsername, validationReason(t, err))

		_, err = svc.Register(ctx, "u", "12345")
		assert.Equal(t, auth.ReasonPasswordTooShort, validationReason(t, err))
	})

	t.Run("existing username is a conflict without hashing", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		svc := newRegistration(t, accounts, mocks.NewMockPasswordHasher(t))

		accounts.On("FindByUsername", mock.Anything, "test").Return(&auth.Account{Username: "test"}, nil)

		account, err := svc.Register(ctx, "test", "anotherpass")
		assert.Nil(t, account)
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
		assert.Equal(t, auth.OutcomeConflict, auth.Classify(err))
	})

	t.Run("lost insert race is a conflict", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc := newRegistration(t, accounts, hasher)

		accounts.On("FindByUsername", mock.Anything, "test").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "123456").Return("digest", nil)
		accounts.On("InsertIfAbsent", mock.Anything, mock.AnythingOfType("*auth.Account")).Return(auth.ErrAlreadyExists)

		_, err := svc.Register(ctx, "test", "123456")
		assert.Equal(t, auth.OutcomeConflict, auth.Classify(err))
	})

	t.Run("unstorable username is a bad request", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc := newRegistration(t, accounts, hasher)

		accounts.On("FindByUsername", mock.Anything, "a\x00").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "123456").Return("digest", nil)
		accounts.On("InsertIfAbsent", mock.Anything, mock.AnythingOfType("*auth.Account")).Return(auth.ErrUnstorable)

		_, err := svc.Register(ctx, "a\x00", "123456")
		assert.Equal(t, auth.OutcomeBadRequest, auth.Classify(err))
		assert.NotErrorIs(t, err, auth.ErrUnavailable)
		assert.Equal(t, auth.ReasonInvalidUsername, validationReason(t, err))
	})

	t.Run("lookup failure is unavailable", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		svc := newRegistration(t, accounts, mocks.NewMockPasswordHasher(t))

		accounts.On("FindByUsername", mock.Anything, "test").Return(nil, errors.New("connection refused"))

		_, err := svc.Register(ctx, "test", "123456")
		assert.ErrorIs(t, err, auth.ErrUnavailable)
		assert.Equal(t, auth.OutcomeServiceUnavailable, auth.Classify(err))
	})

	t.Run("hash failure is unavailable", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc := newRegistration(t, accounts, hasher)

		accounts.On("FindByUsername", mock.Anything, "test").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "123456").Return("", errors.New("entropy exhausted"))

		_, err := svc.Register(ctx, "test", "123456")
		assert.Equal(t, auth.OutcomeServiceUnavailable, auth.Classify(err))
	})

	t.Run("insert failure is unavailable", func(t *testing.T) {
		accounts := mocks.NewMockAccountRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc := newRegistration(t, accounts, hasher)

		accounts.On("FindByUsername", mock.Anything, "test").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "123456").Return("digest", nil)
		accounts.On("InsertIfAbsent", mock.Anything, mock.AnythingOfType("*auth.Account")).Return(context.DeadlineExceeded)

		_, err := svc.Register(ctx, "test", "123456")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, auth.OutcomeServiceUnavailable, auth.Classify(err))
	})
}

func TestRegistrationService_RepeatedRegistration(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAccountRepository()
	svc := newRegistration(t, repo, newFastHasher())

	first, err := svc.Register(ctx, "test", "123456")
	require.NoError(t, err)

	for range 3 {
		_, err := svc.Register(ctx, "test", "differentpass")
		assert.Equal(t, auth.OutcomeConflict, auth.Classify(err))
	}

	stored, err := repo.FindByUsername(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, first.PasswordHash, stored.PasswordHash)
	assert.Equal(t, 1, repo.Len())
}

func TestRegistrationService_ConcurrentSameUsername(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewAccountRepository()
	svc := newRegistration(t, repo, newFastHasher())

	const n = 16
	outcomes := make([]auth.Outcome, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, "racer", "123456")
			outcomes[i] = auth.Classify(err)
		}()
	}
	wg.Wait()

	counts := map[auth.Outcome]int{}
	for _, o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 1, counts[auth.OutcomeSuccess])
	assert.Equal(t, n-1, counts[auth.OutcomeConflict])
	assert.Equal(t, 1, repo.Len())
}

func TestRegistrationService_NeverLogsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	svc, err := auth.NewRegistrationServiceWithLogger(memory.NewAccountRepository(), newFastHasher(),
		auth.NewCredentialValidator(6), auth.StatusActive, logger)
	require.NoError(t, err)

	account, err := svc.Register(context.Background(), "test", "s3cret-pass")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "account registered")
	assert.Contains(t, out, account.ID.String())
	assert.NotContains(t, out, "s3cret-pass")
	assert.NotContains(t, out, account.PasswordHash)
}
