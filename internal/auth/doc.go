// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

// Package auth implements account registration and login.
//
// # Domain Types
//
// Accounts should be created with NewAccount, which rejects an empty username,
// an empty password hash and unknown statuses. Repository implementations
// receive pre-validated accounts.
//
// # Services
//
//   - RegistrationService - validates credentials, hashes the password and
//     inserts the account if the username is free
//   - AuthenticationService - validates credentials, verifies the password
//     and gates login on the account status
//   - AdminService - explicit status transitions (activate, suspend)
//
// Services hold no per-request state and are safe for concurrent use. Every
// service error can be mapped onto an Outcome with Classify.
package auth
