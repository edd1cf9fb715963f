// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package web

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/memberlane/memberlane/pkg/errutil"
)

type registerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleRegister(c echo.Context) error {
	req := new(registerRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	accountID, err := s.service.Register(
		c.Request().Context(),
		req.Username,
		req.Email,
		req.Password,
		req.ConfirmPassword,
	)
	if err != nil {
		s.metrics.RegistrationsTotal.WithLabelValues("failure").Inc()
		return s.writeError(c, err)
	}

	s.metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusCreated, echo.Map{"account_id": accountID.String()})
}

func (s *Server) handleLogin(c echo.Context) error {
	req := new(loginRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	account, err := s.service.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		s.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return s.writeError(c, err)
	}

	token, err := s.authority.Start(
		c.Request().Context(),
		account.ID,
		c.Request().UserAgent(),
		c.RealIP(),
	)
	if err != nil {
		s.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return s.writeError(c, err)
	}

	s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.setSessionCookie(c, token)
	return c.JSON(http.StatusOK, echo.Map{"account_id": account.ID.String()})
}

func (s *Server) handleMe(c echo.Context) error {
	accountID, ok := AccountID(c)
	if !ok {
		return s.unauthorized(c)
	}

	account, err := s.service.GetAccount(c.Request().Context(), accountID)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"account_id": account.ID.String(),
		"username":   account.Username,
		"email":      account.Email,
	})
}

func (s *Server) handleChangePassword(c echo.Context) error {
	accountID, ok := AccountID(c)
	if !ok {
		return s.unauthorized(c)
	}

	req := new(changePasswordRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	err := s.service.ChangePassword(c.Request().Context(), accountID, req.OldPassword, req.NewPassword)
	if err != nil {
		s.metrics.PasswordChanges.WithLabelValues("failure").Inc()
		return s.writeError(c, err)
	}

	s.metrics.PasswordChanges.WithLabelValues("success").Inc()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleLogout(c echo.Context) error {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.authority.End(c.Request().Context(), cookie.Value); err != nil {
			return s.writeError(c, err)
		}
	}
	s.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// writeError maps service errors to HTTP responses. Validation failures
// surface their rule message; credential and session failures stay generic
// so responses never reveal which identifier or check failed.
func (s *Server) writeError(c echo.Context, err error) error {
	switch errorCode(err) {
	case "AUTH_INVALID_USERNAME",
		"AUTH_INVALID_EMAIL",
		"AUTH_INVALID_PASSWORD",
		"AUTH_PASSWORD_MISMATCH",
		"AUTH_REGISTRATION_FAILED":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case "AUTH_INVALID_CREDENTIALS":
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case "AUTH_REAUTH_FAILED":
		return c.JSON(http.StatusForbidden, echo.Map{"error": "old password is incorrect"})
	case "AUTH_ACCOUNT_NOT_FOUND":
		// The account backing this session is gone; invalidate the session.
		s.clearSessionCookie(c)
		return s.unauthorized(c)
	}

	errutil.LogError(s.logger, "request failed", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

func (s *Server) unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func errorCode(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Code()
	}
	return ""
}
