// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/memberlane/memberlane/internal/auth"
	"github.com/memberlane/memberlane/internal/auth/postgres"
	"github.com/memberlane/memberlane/internal/store"
)

// testPool is the shared database pool for integration tests.
var testPool *pgxpool.Pool

// TestMain sets up a PostgreSQL testcontainer for integration tests.
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := pgcontainer.Run(ctx,
		"postgres:16-alpine",
		pgcontainer.WithDatabase("memberlane_test"),
		pgcontainer.WithUsername("memberlane"),
		pgcontainer.WithPassword("memberlane"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		panic("failed to start postgres container: " + err.Error())
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to get connection string: " + err.Error())
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to create migrator: " + err.Error())
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		panic("failed to run migrations: " + err.Error())
	}
	_ = migrator.Close()

	pool, err := store.NewPool(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to create pool: " + err.Error())
	}

	testPool = pool
	code := m.Run()

	pool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func createTestAccount(ctx context.Context, t *testing.T, username, email string) *auth.Account {
	t.Helper()
	account, err := auth.NewAccount(username, email, "$argon2id$v=19$m=65536,t=1,p=4$salt$hash")
	require.NoError(t, err)

	repo := postgres.NewAccountRepository(testPool)
	require.NoError(t, repo.Create(ctx, account))

	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID.String())
	})
	return account
}

func TestAccountRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewAccountRepository(testPool)

	t.Run("create and get round-trip", func(t *testing.T) {
		account := createTestAccount(ctx, t, "it_alice", "it_alice@example.com")

		byID, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, account.Username, byID.Username)

		byEmail, err := repo.GetByEmail(ctx, "IT_ALICE@EXAMPLE.COM")
		require.NoError(t, err)
		assert.Equal(t, account.ID, byEmail.ID)
	})

	t.Run("duplicate email collides case-insensitively", func(t *testing.T) {
		createTestAccount(ctx, t, "it_bob", "it_bob@example.com")

		dup, err := auth.NewAccount("it_bob2", "IT_BOB@example.com", "hash")
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicate)
	})

	t.Run("duplicate username collides case-insensitively", func(t *testing.T) {
		createTestAccount(ctx, t, "it_carol", "it_carol@example.com")

		dup, err := auth.NewAccount("IT_CAROL", "it_carol2@example.com", "hash")
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicate)
	})

	t.Run("replace password requires matching old hash", func(t *testing.T) {
		account := createTestAccount(ctx, t, "it_dave", "it_dave@example.com")

		require.NoError(t, repo.ReplacePassword(ctx, account.ID, account.PasswordHash, "newhash"))

		// Second swap with the original hash is stale now
		err := repo.ReplacePassword(ctx, account.ID, account.PasswordHash, "otherhash")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrStaleVerifier)
	})

	t.Run("replace password on missing account", func(t *testing.T) {
		err := repo.ReplacePassword(ctx, ulid.Make(), "old", "new")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSessionRepository(testPool)

	newStoredSession := func(t *testing.T, accountID ulid.ULID, expiresAt time.Time) *auth.Session {
		t.Helper()
		_, tokenHash, err := auth.GenerateSessionToken()
		require.NoError(t, err)

		session, err := auth.NewSession(accountID, tokenHash, "Mozilla/5.0", "127.0.0.1", expiresAt)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, session))

		t.Cleanup(func() {
			_, _ = testPool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, session.ID.String())
		})
		return session
	}

	t.Run("create and resolve round-trip", func(t *testing.T) {
		account := createTestAccount(ctx, t, "it_eve", "it_eve@example.com")
		session := newStoredSession(t, account.ID, time.Now().Add(time.Hour))

		stored, err := repo.GetByTokenHash(ctx, session.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, account.ID, stored.AccountID)

		require.NoError(t, repo.UpdateLastSeen(ctx, session.ID, time.Now().Add(time.Minute)))
	})

	t.Run("delete by token hash removes binding", func(t *testing.T) {
		account := createTestAccount(ctx, t, "it_frank", "it_frank@example.com")
		session := newStoredSession(t, account.ID, time.Now().Add(time.Hour))

		require.NoError(t, repo.DeleteByTokenHash(ctx, session.TokenHash))

		_, err := repo.GetByTokenHash(ctx, session.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)

		err = repo.DeleteByTokenHash(ctx, session.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("delete expired sweeps only expired rows", func(t *testing.T) {
		account := createTestAccount(ctx, t, "it_grace", "it_grace@example.com")
		expired := newStoredSession(t, account.ID, time.Now().Add(-time.Minute))
		live := newStoredSession(t, account.ID, time.Now().Add(time.Hour))

		count, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(1))

		_, err = repo.GetByTokenHash(ctx, expired.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)

		_, err = repo.GetByTokenHash(ctx, live.TokenHash)
		assert.NoError(t, err)
	})

	t.Run("deleting account cascades to sessions", func(t *testing.T) {
		account := createTestAccount(ctx, t, "it_heidi", "it_heidi@example.com")
		session := newStoredSession(t, account.ID, time.Now().Add(time.Hour))

		_, err := testPool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, account.ID.String())
		require.NoError(t, err)

		_, err = repo.GetByTokenHash(ctx, session.TokenHash)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}
