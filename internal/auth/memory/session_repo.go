// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/memberlane/memberlane/internal/auth"
)

// nowFunc is swapped out by tests that need deterministic time.
var nowFunc = time.Now

// SessionRepository implements auth.SessionRepository with an in-memory map
// keyed by token hash. Safe for concurrent use.
type SessionRepository struct {
	mu          sync.RWMutex
	byTokenHash map[string]*auth.Session
	byID        map[ulid.ULID]string
}

// NewSessionRepository creates an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byTokenHash: make(map[string]*auth.Session),
		byID:        make(map[ulid.ULID]string),
	}
}

// Create stores a new session binding.
func (r *SessionRepository) Create(_ context.Context, session *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byTokenHash[session.TokenHash]; exists {
		return oops.Code("SESSION_DUPLICATE").
			With("session_id", session.ID.String()).
			Wrap(auth.ErrDuplicate)
	}

	clone := *session
	r.byTokenHash[session.TokenHash] = &clone
	r.byID[session.ID] = session.TokenHash
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byTokenHash[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	clone := *session
	return &clone, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *SessionRepository) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tokenHash, ok := r.byID[id]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	r.byTokenHash[tokenHash].LastSeenAt = lastSeen
	return nil
}

// DeleteByTokenHash removes the binding for a token hash.
func (r *SessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.byTokenHash[tokenHash]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	delete(r.byTokenHash, tokenHash)
	delete(r.byID, session.ID)
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (r *SessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	now := nowFunc()

	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for hash, session := range r.byTokenHash {
		if session.IsExpiredAt(now) {
			delete(r.byTokenHash, hash)
			delete(r.byID, session.ID)
			count++
		}
	}
	return count, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
