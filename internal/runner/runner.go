package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aqasim81/library-catalog/internal/database"
	"github.com/aqasim81/library-catalog/internal/migration"
	"github.com/aqasim81/library-catalog/internal/parser"
	"github.com/aqasim81/library-catalog/internal/tracker"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusPending   = "pending"
)

// ProgressEvent is emitted by the runner for each migration processed.
// Already-applied scripts report StatusSkipped; in dry-run mode pending
// scripts report StatusPending.
type ProgressEvent struct {
	Script   *migration.Script
	Status   string
	Duration time.Duration
	Error    error
}

// ScriptSource lists the ordered migration scripts.
type ScriptSource interface {
	ListScripts() ([]migration.Script, error)
}

// HistoryStore abstracts schema history operations for testability.
type HistoryStore interface {
	Table() string
	EnsureTable(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
	GetHistory(ctx context.Context) ([]tracker.AppliedMigration, error)
	RecordApplied(ctx context.Context, q database.Querier, p tracker.RecordParams) error
	RecordFailed(ctx context.Context, p tracker.RecordParams) error
}

// Result summarizes a Migrate call.
type Result struct {
	InitialVersion migration.Version
	CurrentVersion migration.Version
	Applied        []migration.Script
	Pending        []migration.Script // populated in dry-run mode only
}

// lockReleaser is returned by lockFunc and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires the cross-process migration lock.
type lockFunc func(ctx context.Context) (lockReleaser, error)

// scriptExecFunc executes one script and records it as applied within a single unit of work.
type scriptExecFunc func(ctx context.Context, s *migration.Script, rec tracker.RecordParams) error

// Runner brings a database to the newest (or target) schema version by
// applying pending scripts in ascending order, each in its own transaction.
type Runner struct {
	pool             *pgxpool.Pool
	registry         ScriptSource
	store            HistoryStore
	lockWait         time.Duration
	lockTimeout      time.Duration
	statementTimeout time.Duration
	target           migration.Version
	outOfOrder       bool
	ignoreMissing    bool
	dryRun           bool
	logger           *slog.Logger
	onProgress       func(ProgressEvent)
	acquireLock      lockFunc
	execScript       scriptExecFunc

	running sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithLockWait sets how long Migrate waits for another process holding the migration lock.
func WithLockWait(d time.Duration) Option {
	return func(r *Runner) { r.lockWait = d }
}

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Runner) { r.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(r *Runner) { r.statementTimeout = d }
}

// WithTarget stops migrating at the given version. The zero Version means latest.
func WithTarget(v migration.Version) Option {
	return func(r *Runner) { r.target = v }
}

// WithOutOfOrder allows applying pending scripts older than the current version.
func WithOutOfOrder(b bool) Option {
	return func(r *Runner) { r.outOfOrder = b }
}

// WithIgnoreMissing tolerates applied versions whose scripts were removed.
func WithIgnoreMissing(b bool) Option {
	return func(r *Runner) { r.ignoreMissing = b }
}

// WithDryRun enables dry-run mode: pending scripts are reported, the lock is
// not taken and nothing is written.
func WithDryRun(b bool) Option {
	return func(r *Runner) { r.dryRun = b }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// New creates a Runner over the given pool, script registry and history store.
func New(pool *pgxpool.Pool, registry ScriptSource, store HistoryStore, opts ...Option) *Runner {
	r := &Runner{
		pool:     pool,
		registry: registry,
		store:    store,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}

	// Set defaults for injectable functions after options are applied,
	// so tests can override them.
	if r.acquireLock == nil {
		r.acquireLock = func(ctx context.Context) (lockReleaser, error) {
			return database.AcquireLock(ctx, r.pool, database.LockKey(r.store.Table()), r.lockWait)
		}
	}

	if r.execScript == nil {
		r.execScript = r.executeScript
	}

	return r
}

// Migrate applies pending scripts in ascending version order. Applied scripts
// are verified against their recorded checksums before anything executes.
// The first failing script aborts the run; it is rolled back and not recorded
// as applied, so the next run retries it.
func (r *Runner) Migrate(ctx context.Context) (*Result, error) {
	if !r.running.TryLock() {
		return nil, ErrRunnerBusy
	}
	defer r.running.Unlock()

	scripts, err := r.registry.ListScripts()
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	history, release, err := r.prepare(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := buildPlan(scripts, history, r.planOptions())
	if err != nil {
		return nil, err
	}

	r.warnUnresolved(ctx, p)

	result := &Result{InitialVersion: p.current, CurrentVersion: p.current}

	for i := range p.applied {
		r.fireProgress(ProgressEvent{Script: &p.applied[i], Status: StatusSkipped})
	}

	if len(p.pending) == 0 {
		r.logger.InfoContext(ctx, "schema is up to date", "version", p.current.String())

		return result, nil
	}

	for i := range p.pending {
		s := &p.pending[i]

		if r.dryRun {
			result.Pending = append(result.Pending, *s)
			r.fireProgress(ProgressEvent{Script: s, Status: StatusPending})

			continue
		}

		if err := r.applyOne(ctx, s); err != nil {
			return result, err
		}

		result.Applied = append(result.Applied, *s)

		if isAbove(s.Version, result.CurrentVersion) {
			result.CurrentVersion = s.Version
		}
	}

	r.logger.InfoContext(ctx, "migrations complete",
		"applied", len(result.Applied),
		"from", result.InitialVersion.String(),
		"to", result.CurrentVersion.String(),
	)

	return result, nil
}

// prepare reads the schema history for Migrate. A real run takes the
// advisory lock and creates the history table; a dry run does neither and
// treats a missing table as empty history.
func (r *Runner) prepare(ctx context.Context) ([]tracker.AppliedMigration, func(), error) {
	if r.dryRun {
		history, err := r.readHistory(ctx)

		return history, func() {}, err
	}

	lock, err := r.acquireLock(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquiring migration lock: %w", err)
	}

	release := func() {
		lock.Release(context.WithoutCancel(ctx)) //nolint:errcheck // best-effort release on return
	}

	if err := r.store.EnsureTable(ctx); err != nil {
		release()

		return nil, nil, err
	}

	history, err := r.store.GetHistory(ctx)
	if err != nil {
		release()

		return nil, nil, err
	}

	return history, release, nil
}

// Validate checks the registry and, when the history table exists, the
// recorded checksums and ordering, without taking the lock or executing SQL.
func (r *Runner) Validate(ctx context.Context) error {
	scripts, err := r.registry.ListScripts()
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}

	history, err := r.readHistory(ctx)
	if err != nil {
		return err
	}

	_, err = buildPlan(scripts, history, r.planOptions())

	return err
}

func (r *Runner) planOptions() planOptions {
	return planOptions{
		target:        r.target,
		outOfOrder:    r.outOfOrder,
		ignoreMissing: r.ignoreMissing,
	}
}

// readHistory returns the history rows, or none if the table was never created.
func (r *Runner) readHistory(ctx context.Context) ([]tracker.AppliedMigration, error) {
	exists, err := r.store.Exists(ctx)
	if err != nil || !exists {
		return nil, err
	}

	return r.store.GetHistory(ctx)
}

func (r *Runner) warnUnresolved(ctx context.Context, p *plan) {
	for _, v := range p.missing {
		r.logger.WarnContext(ctx, "applied migration has no script", "version", v)
	}

	for _, v := range p.future {
		r.logger.WarnContext(ctx, "database is ahead of the newest script", "version", v)
	}
}

// applyOne executes a single pending script and fires progress events.
func (r *Runner) applyOne(ctx context.Context, s *migration.Script) error {
	rec := tracker.RecordParams{
		Version:     s.Version.String(),
		Description: s.Description,
		Script:      s.Filename,
		Checksum:    s.Checksum,
	}

	r.fireProgress(ProgressEvent{Script: s, Status: StatusStarting})
	r.logger.InfoContext(ctx, "applying migration", "version", rec.Version, "description", s.Description)

	start := time.Now()
	execErr := r.execScript(ctx, s, rec)
	duration := time.Since(start)

	if execErr != nil {
		rec.ExecutionMs = int(duration.Milliseconds())

		if err := r.store.RecordFailed(context.WithoutCancel(ctx), rec); err != nil {
			r.logger.WarnContext(ctx, "could not record failed migration", "version", rec.Version, "error", err)
		}

		r.logger.ErrorContext(ctx, "migration failed", "version", rec.Version, "error", execErr)
		r.fireProgress(ProgressEvent{
			Script:   s,
			Status:   StatusFailed,
			Duration: duration,
			Error:    execErr,
		})

		return &MigrationExecutionError{Version: rec.Version, Description: s.Description, Err: execErr}
	}

	r.logger.InfoContext(ctx, "migration applied", "version", rec.Version, "duration", duration)
	r.fireProgress(ProgressEvent{
		Script:   s,
		Status:   StatusCompleted,
		Duration: duration,
	})

	return nil
}

// executeScript runs every statement of the script and its history record in
// one transaction, so a failure leaves neither schema changes nor a record.
func (r *Runner) executeScript(ctx context.Context, s *migration.Script, rec tracker.RecordParams) error {
	stmts, err := parser.Split(s.SQL)
	if err != nil {
		return err
	}

	return database.ExecInTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		start := time.Now()

		if r.lockTimeout > 0 {
			if err := SetLockTimeout(ctx, tx, r.lockTimeout); err != nil {
				return err
			}
		}

		if r.statementTimeout > 0 {
			if err := SetStatementTimeout(ctx, tx, r.statementTimeout); err != nil {
				return err
			}
		}

		for i, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
		}

		rec.ExecutionMs = int(time.Since(start).Milliseconds())

		return r.store.RecordApplied(ctx, tx, rec)
	})
}

func (r *Runner) fireProgress(event ProgressEvent) {
	if r.onProgress != nil {
		r.onProgress(event)
	}
}
