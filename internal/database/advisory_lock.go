package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	lockInitialInterval = 100 * time.Millisecond
	lockMaxInterval     = 2 * time.Second
)

// LockKey derives the advisory lock key for a metadata table, so two
// services sharing a database but not a history table do not block each other.
func LockKey(table string) int64 {
	return int64(xxhash.Sum64String("library-catalog:migrate:" + table)) //nolint:gosec // wrap-around is fine for a lock key
}

// LockHandle wraps a dedicated pooled connection that holds a
// session-level advisory lock. Call Release to unlock and return
// the connection to the pool.
type LockHandle struct {
	conn *pgxpool.Conn
	key  int64
}

// TryAcquireLock attempts to acquire a session-level advisory lock once.
// Returns a LockHandle if successful, or ErrLockNotAcquired if the
// lock is already held by another session. The caller must call
// handle.Release() when done.
func TryAcquireLock(ctx context.Context, pool *pgxpool.Pool, key int64) (*LockHandle, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for advisory lock: %w", err)
	}

	var acquired bool

	err = conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired)
	if err != nil {
		conn.Release()

		return nil, fmt.Errorf("executing pg_try_advisory_lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return nil, ErrLockNotAcquired
	}

	return &LockHandle{conn: conn, key: key}, nil
}

// AcquireLock retries TryAcquireLock with exponential backoff until the lock
// is obtained, wait elapses, or ctx is done. A zero wait tries exactly once.
func AcquireLock(ctx context.Context, pool *pgxpool.Pool, key int64, wait time.Duration) (*LockHandle, error) {
	if wait <= 0 {
		return TryAcquireLock(ctx, pool, key)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = lockInitialInterval
	b.MaxInterval = lockMaxInterval
	b.MaxElapsedTime = wait

	var handle *LockHandle

	err := backoff.Retry(func() error {
		h, err := TryAcquireLock(ctx, pool, key)
		if err != nil {
			if errors.Is(err, ErrLockNotAcquired) {
				return err
			}

			return backoff.Permanent(err)
		}

		handle = h

		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}

	return handle, nil
}

// Release unlocks the advisory lock and returns the connection to the pool.
// Safe to call multiple times; subsequent calls are no-ops.
func (h *LockHandle) Release(ctx context.Context) error {
	if h == nil || h.conn == nil {
		return nil
	}

	_, err := h.conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", h.key)
	h.conn.Release()
	h.conn = nil

	if err != nil {
		return fmt.Errorf("releasing advisory lock: %w", err)
	}

	return nil
}
