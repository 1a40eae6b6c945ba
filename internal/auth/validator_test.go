// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loginsys/loginsys/internal/auth"
	"github.com/loginsys/loginsys/pkg/errutil"
)

func TestCredentialValidator_Validate(t *testing.T) {
	v := auth.NewCredentialValidator(6)

	tests := []struct {
		name     string
		username string
		password string
		reason   auth.Reason
	}{
		{"valid", "test", "123456", ""},
		{"empty username", "", "123456", auth.ReasonMissingUsername},
		{"whitespace username", "  \t ", "123456", auth.ReasonMissingUsername},
		{"empty password", "test", "", auth.ReasonMissingPassword},
		{"both empty reports username first", "", "", auth.ReasonMissingUsername},
		{"five character password", "u", "12345", auth.ReasonPasswordTooShort},
		{"exactly minimum", "u", "abcdef", ""},
		{"whitespace password counts", "u", "      ", ""},
		{"multibyte characters counted once", "u", "ééééé", auth.ReasonPasswordTooShort},
		{"six multibyte characters", "u", "éééééé", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.username, tt.password)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.reason, validationReason(t, err))
			assert.Equal(t, auth.OutcomeBadRequest, auth.Classify(err))
		})
	}
}

func TestCredentialValidator_Deterministic(t *testing.T) {
	v := auth.NewCredentialValidator(0)
	first := v.Validate("u", "123")
	second := v.Validate("u", "123")
	assert.Equal(t, first.Error(), second.Error())
}

func TestCredentialValidator_MinPasswordLength(t *testing.T) {
	assert.Equal(t, auth.DefaultMinPasswordLength, auth.CredentialValidator{}.MinPasswordLength())
	assert.Equal(t, auth.DefaultMinPasswordLength, auth.NewCredentialValidator(-3).MinPasswordLength())
	assert.Equal(t, 10, auth.NewCredentialValidator(10).MinPasswordLength())

	err := auth.NewCredentialValidator(10).Validate("u", "123456789")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 10 characters")
}

func TestCredentialValidator_ErrorCodes(t *testing.T) {
	v := auth.NewCredentialValidator(6)

	errutil.AssertErrorCode(t, v.Validate("", "x"), "AUTH_MISSING_USERNAME")
	errutil.AssertErrorCode(t, v.Validate("u", ""), "AUTH_MISSING_PASSWORD")

	err := v.Validate("u", "12345")
	errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_TOO_SHORT")
	errutil.AssertErrorContext(t, err, "min", 6)
}

func TestValidationError_Messages(t *testing.T) {
	assert.Equal(t, "username is required", (&auth.ValidationError{Reason: auth.ReasonMissingUsername}).Error())
	assert.Equal(t, "password is required", (&auth.ValidationError{Reason: auth.ReasonMissingPassword}).Error())
	assert.Equal(t, "password must be at least 8 characters",
		(&auth.ValidationError{Reason: auth.ReasonPasswordTooShort, MinLength: 8}).Error())
}
