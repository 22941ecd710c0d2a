package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//nolint:lll // ok for interface
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ Querier = (*pgx.Conn)(nil)
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = pgx.Tx(nil)
)

// SessionUID maps the unsigned session uid onto a bigint column.
// The bit pattern is kept, FromSessionUID restores the original value.
func SessionUID(uid uint64) int64 {
	return int64(uid) //nolint:gosec // bit pattern is preserved
}

func FromSessionUID(v int64) uint64 {
	return uint64(v) //nolint:gosec // bit pattern is preserved
}
