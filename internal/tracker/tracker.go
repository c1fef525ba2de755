package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/aqasim81/library-catalog/internal/database"
)

// AppliedMigration represents a row of the schema history table.
type AppliedMigration struct {
	InstalledRank int64
	Version       string
	Description   string
	Script        string
	Checksum      string
	InstalledOn   time.Time
	ExecutionMs   int
	Success       bool
}

// RecordParams contains the fields needed to record a migration outcome.
type RecordParams struct {
	Version     string
	Description string
	Script      string
	Checksum    string
	ExecutionMs int
}

// Tracker manages the schema history table.
type Tracker struct {
	db    database.Querier
	table string // quoted, possibly schema-qualified
	name  string // unquoted, as configured
}

// New creates a Tracker backed by db. table may be schema-qualified
// ("audit.schema_history"); an empty table selects DefaultTable.
func New(db database.Querier, table string) *Tracker {
	if table == "" {
		table = DefaultTable
	}

	return &Tracker{
		db:    db,
		table: pgx.Identifier(strings.Split(table, ".")).Sanitize(),
		name:  table,
	}
}

// Table returns the configured table name.
func (t *Tracker) Table() string {
	return t.name
}

// EnsureTable creates the history table if it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context) error {
	_, err := t.db.Exec(ctx, fmt.Sprintf(createSchemaSQL, t.table))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// Exists reports whether the history table has been created.
func (t *Tracker) Exists(ctx context.Context) (bool, error) {
	var exists bool

	err := t.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, t.table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking for table %s: %w", t.name, err)
	}

	return exists, nil
}

// GetHistory returns every recorded migration, successful or not, in installation order.
func (t *Tracker) GetHistory(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := t.db.Query(ctx, fmt.Sprintf(
		`SELECT installed_rank, version, description, script, checksum, installed_on, execution_ms, success
		 FROM %s
		 ORDER BY installed_rank`, t.table),
	)
	if err != nil {
		return nil, fmt.Errorf("querying schema history: %w", err)
	}
	defer rows.Close()

	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (AppliedMigration, error) {
		var m AppliedMigration
		if scanErr := row.Scan(
			&m.InstalledRank, &m.Version, &m.Description, &m.Script,
			&m.Checksum, &m.InstalledOn, &m.ExecutionMs, &m.Success,
		); scanErr != nil {
			return AppliedMigration{}, fmt.Errorf("scanning history row: %w", scanErr)
		}

		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning schema history: %w", err)
	}

	return history, nil
}

// GetAppliedVersions returns the set of versions recorded as successfully applied.
func (t *Tracker) GetAppliedVersions(ctx context.Context) (map[string]bool, error) {
	history, err := t.GetHistory(ctx)
	if err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(history))

	for _, h := range history {
		if h.Success {
			applied[h.Version] = true
		}
	}

	return applied, nil
}

// RecordApplied inserts a success record through q, normally the migration's own
// transaction so the record commits with the script. A previous failure row for
// the version is replaced; an existing success row yields ErrAlreadyApplied.
func (t *Tracker) RecordApplied(ctx context.Context, q database.Querier, p RecordParams) error {
	tag, err := q.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s AS h (version, description, script, checksum, execution_ms, success)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 ON CONFLICT (version) DO UPDATE SET
		     description = EXCLUDED.description,
		     script = EXCLUDED.script,
		     checksum = EXCLUDED.checksum,
		     installed_on = NOW(),
		     execution_ms = EXCLUDED.execution_ms,
		     success = TRUE
		 WHERE h.success = FALSE`, t.table),
		p.Version, p.Description, p.Script, p.Checksum, p.ExecutionMs,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as applied: %w", p.Version, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("migration %s: %w", p.Version, ErrAlreadyApplied)
	}

	return nil
}

// RecordFailed writes or refreshes a failure record for the version. It never
// overwrites a success record.
func (t *Tracker) RecordFailed(ctx context.Context, p RecordParams) error {
	_, err := t.db.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s AS h (version, description, script, checksum, execution_ms, success)
		 VALUES ($1, $2, $3, $4, $5, FALSE)
		 ON CONFLICT (version) DO UPDATE SET
		     description = EXCLUDED.description,
		     script = EXCLUDED.script,
		     checksum = EXCLUDED.checksum,
		     installed_on = NOW(),
		     execution_ms = EXCLUDED.execution_ms
		 WHERE h.success = FALSE`, t.table),
		p.Version, p.Description, p.Script, p.Checksum, p.ExecutionMs,
	)
	if err != nil {
		return fmt.Errorf("recording migration %s as failed: %w", p.Version, err)
	}

	return nil
}
