// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

// Package memory provides in-memory repository implementations, used by
// tests and single-node development setups.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/memberlane/memberlane/internal/auth"
)

// AccountRepository implements auth.AccountRepository with an in-memory map.
// Safe for concurrent use.
type AccountRepository struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*auth.Account
	byUsername map[string]ulid.ULID
	byEmail    map[string]ulid.ULID
}

// NewAccountRepository creates an empty AccountRepository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:       make(map[ulid.ULID]*auth.Account),
		byUsername: make(map[string]ulid.ULID),
		byEmail:    make(map[string]ulid.ULID),
	}
}

// Create stores a new account. The uniqueness check and the insert happen
// under one write lock, so two concurrent registrations with the same
// username or email cannot both pass the check.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	username := strings.ToLower(account.Username)
	email := strings.ToLower(account.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[username]; exists {
		return oops.Code("ACCOUNT_DUPLICATE").
			With("field", "username").
			Wrap(auth.ErrDuplicate)
	}
	if _, exists := r.byEmail[email]; exists {
		return oops.Code("ACCOUNT_DUPLICATE").
			With("field", "email").
			Wrap(auth.ErrDuplicate)
	}

	clone := *account
	r.byID[account.ID] = &clone
	r.byUsername[username] = account.ID
	r.byEmail[email] = account.ID
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	clone := *account
	return &clone, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	clone := *r.byID[id]
	return &clone, nil
}

// ReplacePassword swaps the stored hash if it still equals oldHash.
func (r *AccountRepository) ReplacePassword(_ context.Context, id ulid.ULID, oldHash, newHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if account.PasswordHash != oldHash {
		return oops.Code("ACCOUNT_STALE_VERIFIER").
			With("id", id.String()).
			Wrap(auth.ErrStaleVerifier)
	}

	account.PasswordHash = newHash
	account.UpdatedAt = nowFunc()
	return nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
