// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loginsys/loginsys/internal/auth"
	"github.com/loginsys/loginsys/pkg/errutil"
)

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, username, password string) (*auth.Account, error)
}

// Authenticator verifies credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Account, error)
}

// Pinger reports whether the account store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Recorder receives request outcomes for metrics.
type Recorder interface {
	ObserveRegistration(outcome auth.Outcome)
	ObserveLogin(outcome auth.Outcome)
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRegistration(auth.Outcome)               {}
func (nopRecorder) ObserveLogin(auth.Outcome)                      {}
func (nopRecorder) ObserveHTTP(string, string, int, time.Duration) {}

// credentials is the request body of register and login. Fields are kept raw
// so a non-string value degrades to a missing field instead of a decode error.
type credentials struct {
	Username json.RawMessage `json:"username"`
	Password json.RawMessage `json:"password"`
}

// Handler serves the authentication endpoints.
type Handler struct {
	registrar     Registrar
	authenticator Authenticator
	store         Pinger
	recorder      Recorder
	timeout       time.Duration
	logger        *slog.Logger
}

func (h *Handler) register(c echo.Context) error {
	username, password, err := decodeCredentials(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	account, err := h.registrar.Register(ctx, username, password)
	outcome := auth.Classify(err)
	h.recorder.ObserveRegistration(outcome)
	if err != nil {
		return h.reject(c, outcome, err)
	}
	return success(c, http.StatusCreated, newAccountView(account), "User registered successfully")
}

func (h *Handler) login(c echo.Context) error {
	username, password, err := decodeCredentials(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	account, err := h.authenticator.Login(ctx, username, password)
	outcome := auth.Classify(err)
	h.recorder.ObserveLogin(outcome)
	if err != nil {
		return h.reject(c, outcome, err)
	}
	return success(c, http.StatusOK, newAccountView(account), "Login successful")
}

func (h *Handler) health(c echo.Context) error {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{
				Status:  "unavailable",
				Message: "Account store is unreachable",
			})
		}
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Message: "Login system is running",
	})
}

// reject writes the response for a failed service call.
func (h *Handler) reject(c echo.Context, outcome auth.Outcome, err error) error {
	switch outcome {
	case auth.OutcomeBadRequest:
		var verr *auth.ValidationError
		if !errors.As(err, &verr) {
			return failure(c, http.StatusBadRequest, CodeInvalidRequestBody, "")
		}
		return failure(c, http.StatusBadRequest, string(verr.Reason), verr.Error())
	case auth.OutcomeConflict:
		return failure(c, http.StatusConflict, CodeUsernameTaken, "Username already exists")
	case auth.OutcomeUnauthorized:
		return failure(c, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password")
	case auth.OutcomeForbidden:
		return failure(c, http.StatusForbidden, CodeAccountInactive, "User account is not active")
	default:
		errutil.LogErrorContext(c.Request().Context(), h.logger, "request failed", err,
			"route", c.Path())
		return failure(c, http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable")
	}
}

// decodeCredentials reads the username and password. An empty body counts as
// an empty object. Absent, null or non-string fields decode as "". Body
// errors are returned as *echo.HTTPError for the error handler to render.
func decodeCredentials(c echo.Context) (string, string, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return "", "", httpErr
		}
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "Request body could not be read").SetInternal(err)
	}
	if len(body) == 0 {
		return "", "", nil
	}

	var req credentials
	if err := json.Unmarshal(body, &req); err != nil {
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "Request body must be a JSON object").SetInternal(err)
	}
	return stringField(req.Username), stringField(req.Password), nil
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}
