package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxConns = 5

	// MinMaxConns is the smallest usable pool: the migration lock pins one
	// connection while history reads and script transactions need another.
	MinMaxConns = 2
)

// Querier is the query surface shared by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPool creates a pgx connection pool for the given database URL.
// It parses the connection string, applies the max connection limit
// (a conservative default when maxConns is zero), and pings the database
// to verify connectivity. A limit below MinMaxConns is rejected.
func NewPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	if maxConns != 0 && maxConns < MinMaxConns {
		return nil, fmt.Errorf("%w: max connections %d, need at least %d", ErrPoolTooSmall, maxConns, MinMaxConns)
	}

	poolCfg.MaxConns = defaultMaxConns
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return pool, nil
}
