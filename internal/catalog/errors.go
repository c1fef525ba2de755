package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness constraint was violated.
var ErrConflict = errors.New("conflicts with an existing record")

// ErrInvalidReference indicates a foreign key pointed at a missing row.
var ErrInvalidReference = errors.New("referenced record does not exist")

// ErrUnavailable indicates a book has no copies left to lend.
var ErrUnavailable = errors.New("book is not available")

// ErrAlreadyReturned indicates a borrowing was already closed.
var ErrAlreadyReturned = errors.New("borrowing already returned")

// ValidationError lists field problems found in an input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// validator accumulates field problems.
type validator map[string]string

func (v validator) check(ok bool, field, msg string) {
	if !ok {
		if _, seen := v[field]; !seen {
			v[field] = msg
		}
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}

	return &ValidationError{Fields: v}
}

// PostgreSQL error codes mapped to catalog errors.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps driver errors onto catalog sentinels.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w (%s)", what, ErrConflict, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", what, ErrInvalidReference, pgErr.ConstraintName)
		}
	}

	return fmt.Errorf("%s: %w", what, err)
}
