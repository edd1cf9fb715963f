// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionAuthority issues, resolves, and revokes session tokens against an
// injectable binding store. Tokens move between states
// Anonymous -> Authenticated -> Anonymous; logout always returns to
// Anonymous and a later login re-enters Authenticated with a fresh token.
type SessionAuthority struct {
	sessions SessionRepository
	ttl      time.Duration
	logger   *slog.Logger
}

// NewSessionAuthority creates a new SessionAuthority. A non-positive ttl
// falls back to DefaultSessionExpiry.
func NewSessionAuthority(sessions SessionRepository, ttl time.Duration) (*SessionAuthority, error) {
	return NewSessionAuthorityWithLogger(sessions, ttl, slog.Default())
}

// NewSessionAuthorityWithLogger creates a new SessionAuthority with an
// explicit logger.
func NewSessionAuthorityWithLogger(sessions SessionRepository, ttl time.Duration, logger *slog.Logger) (*SessionAuthority, error) {
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("sessions repository is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("logger is required")
	}
	if ttl <= 0 {
		ttl = DefaultSessionExpiry
	}
	return &SessionAuthority{
		sessions: sessions,
		ttl:      ttl,
		logger:   logger,
	}, nil
}

// Start issues an opaque token bound to the account and persists the
// binding server-side. The plaintext token is returned for the caller to
// transport (e.g. in a cookie); only its hash is stored.
func (a *SessionAuthority) Start(ctx context.Context, accountID ulid.ULID, userAgent, ipAddress string) (string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return "", oops.Code("SESSION_START_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(accountID, tokenHash, userAgent, ipAddress, time.Now().Add(a.ttl))
	if err != nil {
		return "", oops.Code("SESSION_START_FAILED").
			With("operation", "build session").
			Wrap(err)
	}

	if err := a.sessions.Create(ctx, session); err != nil {
		return "", oops.Code("SESSION_START_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	a.logger.InfoContext(ctx, "session started",
		"session_id", session.ID.String(),
		"account_id", accountID.String())
	return token, nil
}

// Resolve looks up the binding for a token and returns the bound account
// ID. Missing, unknown, and expired tokens all resolve to ErrUnauthorized;
// absence is a normal outcome, not a storage failure. On success the
// session's LastSeenAt is touched best-effort.
func (a *SessionAuthority) Resolve(ctx context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code("AUTH_UNAUTHORIZED").Wrap(ErrUnauthorized)
	}

	session, err := a.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code("AUTH_UNAUTHORIZED").Wrap(ErrUnauthorized)
		}
		return ulid.ULID{}, oops.Code("SESSION_RESOLVE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return ulid.ULID{}, oops.Code("AUTH_UNAUTHORIZED").Wrap(ErrUnauthorized)
	}

	// Best effort; resolution succeeds regardless.
	_ = a.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck

	return session.AccountID, nil
}

// End removes the binding for a token. Idempotent: ending an unknown or
// already-ended session is not an error.
func (a *SessionAuthority) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	err := a.sessions.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_END_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// PurgeExpired removes expired bindings and returns the count removed.
func (a *SessionAuthority) PurgeExpired(ctx context.Context) (int64, error) {
	count, err := a.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	if count > 0 {
		a.logger.InfoContext(ctx, "expired sessions purged", "count", count)
	}
	return count, nil
}
