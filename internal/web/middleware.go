// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package web

import (
	"errors"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/memberlane/memberlane/internal/auth"
)

// accountIDKey is the echo context key holding the resolved account ID.
const accountIDKey = "memberlane.account_id"

// AccountID returns the account ID resolved by the session middleware.
func AccountID(c echo.Context) (ulid.ULID, bool) {
	id, ok := c.Get(accountIDKey).(ulid.ULID)
	return id, ok
}

// requireSession resolves the session cookie to an account ID and stores it
// in the request context. Missing, unknown, and expired tokens all produce
// the same 401 response.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			s.metrics.SessionResolves.WithLabelValues("unauthorized").Inc()
			return s.unauthorized(c)
		}

		accountID, err := s.authority.Resolve(c.Request().Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				s.metrics.SessionResolves.WithLabelValues("unauthorized").Inc()
				s.clearSessionCookie(c)
				return s.unauthorized(c)
			}
			s.metrics.SessionResolves.WithLabelValues("error").Inc()
			return s.writeError(c, err)
		}

		s.metrics.SessionResolves.WithLabelValues("success").Inc()
		c.Set(accountIDKey, accountID)
		return next(c)
	}
}
