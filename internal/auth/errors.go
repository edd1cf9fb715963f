// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a create would violate a uniqueness
// constraint on username or email.
var ErrDuplicate = errors.New("duplicate key")

// ErrStaleVerifier is returned by ReplacePassword when the stored hash no
// longer matches the hash the caller verified against.
var ErrStaleVerifier = errors.New("stale verifier")

// ErrUnauthorized is returned when a session token is missing, unknown,
// or expired.
var ErrUnauthorized = errors.New("unauthorized")
