package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SetLockTimeout sets lock_timeout for the remainder of the given transaction.
// The migration fails fast if it cannot acquire a lock within the duration,
// instead of queueing behind application queries.
func SetLockTimeout(ctx context.Context, tx pgx.Tx, timeout time.Duration) error {
	sql := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())

	_, err := tx.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("setting lock_timeout: %w", err)
	}

	return nil
}

// SetStatementTimeout sets statement_timeout for the remainder of the given transaction.
func SetStatementTimeout(ctx context.Context, tx pgx.Tx, timeout time.Duration) error {
	sql := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", timeout.Milliseconds())

	_, err := tx.Exec(ctx, sql)
	if err != nil {
		return fmt.Errorf("setting statement_timeout: %w", err)
	}

	return nil
}
