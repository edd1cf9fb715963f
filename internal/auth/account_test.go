// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package auth_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memberlane/memberlane/internal/auth"
	"github.com/memberlane/memberlane/pkg/errutil"
)

func TestNewAccount(t *testing.T) {
	t.Run("valid input", func(t *testing.T) {
		account, err := auth.NewAccount("alice", "alice@example.com", "hash")
		require.NoError(t, err)

		assert.NotEqual(t, ulid.ULID{}, account.ID)
		assert.Equal(t, "alice", account.Username)
		assert.Equal(t, "alice@example.com", account.Email)
		assert.Equal(t, "hash", account.PasswordHash)
		assert.False(t, account.CreatedAt.IsZero())
		assert.Equal(t, account.CreatedAt, account.UpdatedAt)
	})

	t.Run("fresh ID per account", func(t *testing.T) {
		first, err := auth.NewAccount("alice", "alice@example.com", "hash")
		require.NoError(t, err)
		second, err := auth.NewAccount("bob", "bob@example.com", "hash")
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("invalid input", func(t *testing.T) {
		tests := []struct {
			name     string
			username string
			email    string
			hash     string
			wantCode string
		}{
			{name: "empty username", username: "", email: "a@example.com", hash: "hash", wantCode: "AUTH_INVALID_USERNAME"},
			{name: "empty email", username: "alice", email: "", hash: "hash", wantCode: "AUTH_INVALID_EMAIL"},
			{name: "bad email", username: "alice", email: "nope", hash: "hash", wantCode: "AUTH_INVALID_EMAIL"},
			{name: "empty hash", username: "alice", email: "a@example.com", hash: "", wantCode: "AUTH_INVALID_HASH"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				account, err := auth.NewAccount(tt.username, tt.email, tt.hash)
				require.Error(t, err)
				assert.Nil(t, account)
				errutil.AssertErrorCode(t, err, tt.wantCode)
			})
		}
	})
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"alice@example.com",
		"a.b+c@sub.example.co.uk",
		"x@y.zz",
	}
	for _, email := range valid {
		assert.NoError(t, auth.ValidateEmail(email), "expected %q to validate", email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"alice@",
		"alice@example",
		"alice @example.com",
		"alice@exam ple.com",
		"alice@@example.com",
	}
	for _, email := range invalid {
		err := auth.ValidateEmail(email)
		require.Error(t, err, "expected %q to be rejected", email)
		assert.Contains(t, err.Error(), "please include a valid email")
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, auth.ValidatePassword("123456"))
	assert.NoError(t, auth.ValidatePassword("a much longer password"))

	err := auth.ValidatePassword("12345")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password must be 6 or more characters")

	require.Error(t, auth.ValidatePassword(""))
}

func TestValidateUsername(t *testing.T) {
	assert.NoError(t, auth.ValidateUsername("alice"))

	err := auth.ValidateUsername("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")
}
