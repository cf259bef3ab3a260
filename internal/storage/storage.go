// Package storage is the Postgres persistence layer: booking records, slot
// snapshot mirrors, stored accounts, and scheduled snipe jobs. Schema lives
// in schema.sql.
package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("storage: not found")

// querier is the pgx surface the stores run on; *db.Pool and pgx.Tx both
// satisfy it.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
