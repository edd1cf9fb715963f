// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberlane/memberlane/internal/auth"
)

// fastParams keeps the argon2id work factor low for tests.
var fastParams = auth.Argon2Params{
	Time:    1,
	Memory:  1024,
	Threads: 1,
}

func TestArgon2idHasher_Hash(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(fastParams)

	t.Run("produces PHC format", func(t *testing.T) {
		hash, err := hasher.Hash("correct horse battery staple")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"), "unexpected format: %s", hash)

		parts := strings.Split(hash, "$")
		assert.Len(t, parts, 6)
		assert.Contains(t, parts[3], "m=1024,t=1,p=1")
	})

	t.Run("same password yields different verifiers", func(t *testing.T) {
		first, err := hasher.Hash("password123")
		require.NoError(t, err)
		second, err := hasher.Hash("password123")
		require.NoError(t, err)

		assert.NotEqual(t, first, second, "salt should randomize the verifier")
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})
}

func TestArgon2idHasher_Verify(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(fastParams)

	t.Run("round-trip matches", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("password123", hash))
	})

	t.Run("wrong password mismatches", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.False(t, hasher.Verify("password124", hash))
	})

	t.Run("parameters come from the verifier", func(t *testing.T) {
		// A verifier written with one work factor still verifies under a
		// hasher configured with another.
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)

		other := auth.NewArgon2idHasher()
		assert.True(t, other.Verify("password123", hash))
	})

	t.Run("malformed verifiers are a mismatch, not an error", func(t *testing.T) {
		tests := []struct {
			name     string
			verifier string
		}{
			{name: "empty", verifier: ""},
			{name: "not a hash at all", verifier: "hello world"},
			{name: "too few parts", verifier: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA"},
			{name: "too many parts", verifier: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA$extra"},
			{name: "wrong algorithm", verifier: "$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
			{name: "bcrypt verifier", verifier: "$2b$10$N9qo8uLOickgx2ZMRZoMye"},
			{name: "garbage version", verifier: "$argon2id$vX$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
			{name: "garbage params", verifier: "$argon2id$v=19$mxt$c2FsdA$aGFzaA"},
			{name: "bad salt encoding", verifier: "$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA"},
			{name: "bad hash encoding", verifier: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$!!!"},
			{name: "zero threads", verifier: "$argon2id$v=19$m=1024,t=1,p=0$c2FsdA$aGFzaA"},
			{name: "threads overflow uint8", verifier: "$argon2id$v=19$m=1024,t=1,p=300$c2FsdA$aGFzaA"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.False(t, hasher.Verify("password123", tt.verifier))
			})
		}
	})
}

func TestNewArgon2idHasherWithParams_ZeroFieldsFallBack(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{})

	hash, err := hasher.Hash("password123")
	require.NoError(t, err)

	def := auth.DefaultArgon2Params()
	assert.Contains(t, hash, "m=65536")
	assert.True(t, hasher.Verify("password123", hash))
	assert.EqualValues(t, 64*1024, def.Memory)
}
