// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// emailRegex accepts anything shaped local@domain.tld. Full RFC 5322
// parsing is deliberately out of scope; the address is never used for
// delivery in this service.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Account represents one registered identity.
type Account struct {
	ID           ulid.ULID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAccount creates a validated Account instance with a fresh ID.
// The password hash must already be produced by a PasswordHasher;
// this constructor never sees plaintext.
func NewAccount(username, email, passwordHash string) (*Account, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername checks that a username is present.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username is required")
	}
	return nil
}

// ValidateEmail checks that an email is syntactically plausible.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("please include a valid email")
	}
	return nil
}

// ValidatePassword checks the minimum length rule for new passwords.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be %d or more characters", MinPasswordLength)
	}
	return nil
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Create stores a new account. The check for username and email
	// uniqueness and the insert are a single atomic step; collisions
	// surface as ErrDuplicate.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	// Returns ErrNotFound if no account has the given ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// ReplacePassword swaps the stored password hash, but only if the
	// stored value still equals oldHash. Returns ErrStaleVerifier when
	// the hash moved underneath the caller and ErrNotFound when the
	// account does not exist.
	ReplacePassword(ctx context.Context, id ulid.ULID, oldHash, newHash string) error
}
