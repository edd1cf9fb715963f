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
	"github.com/sethvargo/go-retry"
)

// Service provides credential operations: registration, verification,
// and password changes. Each call is independent; no cross-call state.
type Service struct {
	accounts AccountRepository
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewService creates a new Service.
func NewService(accounts AccountRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(accounts, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(accounts AccountRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("accounts repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("logger is required")
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		logger:   logger,
	}, nil
}

// dummyVerifier is used when an account doesn't exist to prevent timing
// attacks. We still run password verification so response time stays
// consistent between the unknown-email and wrong-password paths.
// This is NOT a real credential - it's a fake hash that will never match.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyVerifier = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Bounded optimistic retry for the password-change compare-and-swap.
const (
	changePasswordRetries = 2
	changePasswordBackoff = 10 * time.Millisecond
)

// Register validates input, hashes the password, and persists a new
// account. Validation surfaces the first failing rule in the fixed order:
// username, email, password length, confirmation match. Uniqueness
// collisions collapse to one generic failure so the response never reveals
// whether the username or the email was taken.
//
// Register does not start a session; the caller redirects to login.
func (s *Service) Register(ctx context.Context, username, email, password, confirmPassword string) (ulid.ULID, error) {
	if err := ValidateUsername(username); err != nil {
		return ulid.ULID{}, err
	}
	if err := ValidateEmail(email); err != nil {
		return ulid.ULID{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return ulid.ULID{}, err
	}
	if confirmPassword != password {
		return ulid.ULID{}, oops.Code("AUTH_PASSWORD_MISMATCH").
			Errorf("confirm password field must match password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(username, email, hash)
	if err != nil {
		return ulid.ULID{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "build account").
			Wrap(err)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Deliberately non-specific: revealing which field collided
			// would let a caller enumerate registered identifiers.
			return ulid.ULID{}, oops.Code("AUTH_REGISTRATION_FAILED").
				Errorf("user registration failed")
		}
		return ulid.ULID{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID.String())
	return account.ID, nil
}

// Authenticate verifies an email/password pair and returns the account.
// Unknown email and wrong password return the identical error; a dummy
// verification runs on the unknown-email path so both failures cost the
// same amount of hashing work.
//
// Authenticate does not issue a session; that is the SessionAuthority's job.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, oops.Code("AUTH_INVALID_PASSWORD").Errorf("password is required")
	}

	account, lookupErr := s.accounts.GetByEmail(ctx, email)

	targetHash := dummyVerifier
	accountExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get account by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = account.PasswordHash
		accountExists = true
	}

	// Always verify, even against the dummy hash.
	valid := s.hasher.Verify(password, targetHash)

	if !accountExists || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid credentials")
	}

	return account, nil
}

// GetAccount returns the account for the given ID.
func (s *Service) GetAccount(ctx context.Context, accountID ulid.ULID) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").
				With("account_id", accountID.String()).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_GET_ACCOUNT_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}
	return account, nil
}

// ChangePassword re-verifies the old password and swaps in a verifier for
// the new one. The caller must already hold a validated session; this
// method does not check session state. The swap is a compare-and-swap
// against the verified hash, retried against the latest row when a
// concurrent change wins the race.
//
// Existing sessions are not rotated on password change. The original
// system behaves the same way; callers wanting rotation must do it
// themselves.
func (s *Service) ChangePassword(ctx context.Context, accountID ulid.ULID, oldPassword, newPassword string) error {
	if oldPassword == "" {
		return oops.Code("AUTH_INVALID_PASSWORD").Errorf("old password is required")
	}
	if len(newPassword) < MinPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("new password must be %d or more characters", MinPasswordLength)
	}

	backoff := retry.WithMaxRetries(changePasswordRetries, retry.NewConstant(changePasswordBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		account, err := s.accounts.GetByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Caller treats this as a session-invalidation signal.
				return oops.Code("AUTH_ACCOUNT_NOT_FOUND").
					With("account_id", accountID.String()).
					Wrap(err)
			}
			return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
				With("operation", "get account by id").
				Wrap(err)
		}

		if !s.hasher.Verify(oldPassword, account.PasswordHash) {
			return oops.Code("AUTH_REAUTH_FAILED").Errorf("old password is incorrect")
		}

		newHash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
				With("operation", "hash new password").
				Wrap(err)
		}

		if err := s.accounts.ReplacePassword(ctx, accountID, account.PasswordHash, newHash); err != nil {
			if errors.Is(err, ErrStaleVerifier) {
				// Another writer replaced the hash between our read and
				// swap; re-verify against the latest row.
				return retry.RetryableError(err)
			}
			if errors.Is(err, ErrNotFound) {
				return oops.Code("AUTH_ACCOUNT_NOT_FOUND").
					With("account_id", accountID.String()).
					Wrap(err)
			}
			return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
				With("operation", "replace password").
				Wrap(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStaleVerifier) {
			return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
				With("operation", "replace password").
				With("attempts", changePasswordRetries+1).
				Wrap(err)
		}
		return err
	}

	s.logger.InfoContext(ctx, "password changed", "account_id", accountID.String())
	return nil
}
