// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package auth

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// DefaultMinPasswordLength is used when no minimum is configured.
const DefaultMinPasswordLength = 6

// Reason identifies why submitted credentials were rejected.
type Reason string

// Validation reasons, in the order they are checked.
const (
	ReasonMissingUsername  Reason = "MISSING_USERNAME"
	ReasonMissingPassword  Reason = "MISSING_PASSWORD"
	ReasonPasswordTooShort Reason = "PASSWORD_TOO_SHORT"

	// ReasonInvalidUsername is reported after validation, when the account
	// store cannot hold the username.
	ReasonInvalidUsername Reason = "INVALID_USERNAME"
)

// ValidationError is a structural defect in submitted credentials.
type ValidationError struct {
	Reason    Reason
	MinLength int
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonMissingUsername:
		return "username is required"
	case ReasonMissingPassword:
		return "password is required"
	case ReasonPasswordTooShort:
		return fmt.Sprintf("password must be at least %d characters", e.MinLength)
	case ReasonInvalidUsername:
		return "username contains unsupported characters"
	default:
		return "invalid credentials format"
	}
}

// CredentialValidator checks a username/password pair before any storage
// access. The zero value uses DefaultMinPasswordLength.
type CredentialValidator struct {
	minPasswordLength int
}

// NewCredentialValidator creates a validator. A non-positive minimum falls
// back to DefaultMinPasswordLength.
func NewCredentialValidator(minPasswordLength int) CredentialValidator {
	return CredentialValidator{minPasswordLength: minPasswordLength}
}

// MinPasswordLength returns the effective minimum password length.
func (v CredentialValidator) MinPasswordLength() int {
	if v.minPasswordLength <= 0 {
		return DefaultMinPasswordLength
	}
	return v.minPasswordLength
}

// Validate returns nil for acceptable credentials, otherwise an error wrapping
// a *ValidationError for the first rule that fails.
// Password length is counted in characters, not bytes.
func (v CredentialValidator) Validate(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return reject(ReasonMissingUsername, 0)
	}
	if password == "" {
		return reject(ReasonMissingPassword, 0)
	}
	if minLen := v.MinPasswordLength(); utf8.RuneCountInString(password) < minLen {
		return reject(ReasonPasswordTooShort, minLen)
	}
	return nil
}

func reject(reason Reason, minLength int) error {
	verr := &ValidationError{Reason: reason, MinLength: minLength}
	b := oops.Code("AUTH_" + string(reason))
	if minLength > 0 {
		b = b.With("min", minLength)
	}
	return b.Wrap(verr)
}
