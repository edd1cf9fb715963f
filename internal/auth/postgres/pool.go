// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

// Package postgres provides PostgreSQL-backed repository implementations.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// poolIface covers the two pgxpool.Pool methods the repositories call.
// pgxmock satisfies it, so repository tests run without a database.
type poolIface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
