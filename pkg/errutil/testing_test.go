// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package errutil_test

import (
	"fmt"
	"testing"

	"github.com/samber/oops"

	"github.com/loginsys/loginsys/pkg/errutil"
)

func TestAssertErrorCode_WrappedCode(t *testing.T) {
	err := fmt.Errorf("register: %w", oops.Code("AUTH_USERNAME_TAKEN").Errorf("taken"))
	errutil.AssertErrorCode(t, err, "AUTH_USERNAME_TAKEN")
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.Code("ACCOUNT_NOT_FOUND").With("username", "alice").Errorf("not found")
	errutil.AssertErrorContext(t, err, "username", "alice")
}
