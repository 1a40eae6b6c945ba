// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

// Package api is the HTTP JSON boundary of the authentication service.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/loginsys/loginsys/internal/logging"
)

// Route paths.
const (
	RouteRegister = "/api/auth/register"
	RouteLogin    = "/api/auth/login"
	RouteHealth   = "/api/health"
)

// DefaultRequestTimeout bounds the service work of one request when Options
// leaves it unset.
const DefaultRequestTimeout = 5 * time.Second

// Options configure a Server.
type Options struct {
	Addr string
	// RequestTimeout bounds store and hashing work per request.
	RequestTimeout time.Duration
	// BodyLimit is an echo size string such as "64K". Empty means no limit.
	BodyLimit   string
	CORSOrigins []string

	Registrar     Registrar
	Authenticator Authenticator
	// Store backs GET /api/health. Nil always reports healthy.
	Store Pinger
	// Recorder may be nil.
	Recorder Recorder
	Logger   *slog.Logger
}

// Server is the public API listener.
type Server struct {
	addr       string
	echo       *echo.Echo
	listener   net.Listener
	httpServer *http.Server
	logger     *slog.Logger
	running    atomic.Bool
}

// NewServer builds the router and middleware chain.
func NewServer(opts Options) (*Server, error) {
	if opts.Registrar == nil {
		return nil, oops.Code("API_INVALID_CONFIG").Errorf("registrar is required")
	}
	if opts.Authenticator == nil {
		return nil, oops.Code("API_INVALID_CONFIG").Errorf("authenticator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	h := &Handler{
		registrar:     opts.Registrar,
		authenticator: opts.Authenticator,
		store:         opts.Store,
		recorder:      recorder,
		timeout:       timeout,
		logger:        logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig(logger)))
	e.Use(middleware.Recover())
	e.Use(observe(recorder))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	e.GET(RouteHealth, h.health)
	e.POST(RouteRegister, h.register)
	e.POST(RouteLogin, h.login)

	return &Server{addr: opts.Addr, echo: e, logger: logger}, nil
}

// Handler returns the HTTP handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving. The returned channel receives a serve error, if any,
// and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("API_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests until ctx expires. Stopping a stopped server
// is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown api server").Wrap(err)
		}
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
