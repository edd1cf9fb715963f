// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

// Package web exposes the account and session operations as a JSON HTTP API.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/memberlane/memberlane/internal/auth"
	"github.com/memberlane/memberlane/internal/observability"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "memberlane_session"

// Server serves the HTTP API. Handlers delegate to the credential service
// and session authority; the server itself holds no account state.
type Server struct {
	echo       *echo.Echo
	service    *auth.Service
	authority  *auth.SessionAuthority
	metrics    *observability.Metrics
	sessionTTL time.Duration
	logger     *slog.Logger
	running    atomic.Bool
}

// NewServer creates a Server wired to the given service and session
// authority. A non-positive sessionTTL falls back to the authority default.
func NewServer(service *auth.Service, authority *auth.SessionAuthority, metrics *observability.Metrics, sessionTTL time.Duration, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("credential service is required")
	}
	if authority == nil {
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("session authority is required")
	}
	if metrics == nil {
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("metrics are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if sessionTTL <= 0 {
		sessionTTL = auth.DefaultSessionExpiry
	}

	s := &Server{
		service:    service,
		authority:  authority,
		metrics:    metrics,
		sessionTTL: sessionTTL,
		logger:     logger,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus: true,
		LogMethod: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error.Error())
			}
			logger.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	}))

	e.POST("/register", s.handleRegister)
	e.POST("/login", s.handleLogin)
	e.POST("/logout", s.handleLogout)

	protected := e.Group("", s.requireSession)
	protected.GET("/me", s.handleMe)
	protected.POST("/change-password", s.handleChangePassword)

	s.echo = e
	return s, nil
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start begins serving on addr. It returns an error channel that receives
// any serve error; the channel is closed when the server stops gracefully.
func (s *Server) Start(addr string) (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("web server already running")
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", err)
			errCh <- err
		}
	}()

	s.logger.Info("web server started", "addr", addr)
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.With("operation", "shutdown_web_server").Wrap(err)
	}
	s.logger.Info("web server stopped")
	return nil
}

func (s *Server) setSessionCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
