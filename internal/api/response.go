// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loginsys/loginsys/internal/auth"
)

// Response is the envelope of every /api/auth reply.
type Response struct {
	Success bool       `json:"success"`
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries a machine-readable reason.
type ErrorInfo struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// AccountView is the public projection of an account. It never includes
// the password hash.
type AccountView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Error codes surfaced to clients besides the validation reasons.
const (
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountInactive    = "ACCOUNT_INACTIVE"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeNotFound           = "NOT_FOUND"
)

func newAccountView(a *auth.Account) AccountView {
	return AccountView{
		ID:        a.ID.String(),
		Username:  a.Username,
		Status:    a.Status.String(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func success(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Response{
		Success: true,
		Code:    status,
		Message: message,
		Data:    data,
	})
}

func failure(c echo.Context, status int, code, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	return c.JSON(status, Response{
		Success: false,
		Code:    status,
		Message: message,
		Error:   &ErrorInfo{Code: code},
	})
}
