//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/library-catalog/internal/migration"
	"github.com/aqasim81/library-catalog/internal/runner"
)

func shelfScripts() map[string]string {
	return map[string]string{
		"V1__create_shelves.sql":     "CREATE TABLE shelves (id SERIAL PRIMARY KEY, name TEXT NOT NULL);",
		"V2__create_copies.sql":      "CREATE TABLE copies (id SERIAL PRIMARY KEY, shelf_id INTEGER REFERENCES shelves(id));",
		"V3__add_shelf_location.sql": "ALTER TABLE shelves ADD COLUMN location TEXT;\nCREATE INDEX idx_shelves_location ON shelves (location);",
		"README.md":                  "not a migration",
		"R__refresh_views.sql":       "SELECT 1;",
	}
}

func TestMigrate_freshDatabase_appliesAllInOrder(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	var started []string
	r, store := newTestRunner(pool, scriptFS(shelfScripts()),
		runner.WithProgressCallback(func(e runner.ProgressEvent) {
			if e.Status == runner.StatusStarting {
				started = append(started, e.Script.Version.String())
			}
		}))

	result, err := r.Migrate(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2", "3"}, started)
	assert.True(t, result.InitialVersion.IsZero())
	assert.Equal(t, "3", result.CurrentVersion.String())

	history, err := store.GetHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 3)

	for i, h := range history {
		assert.Equal(t, started[i], h.Version)
		assert.True(t, h.Success)
	}

	assert.True(t, tableExists(t, pool, "copies"))
}

func TestMigrate_twice_isIdempotent(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	r, store := newTestRunner(pool, scriptFS(shelfScripts()))

	_, err := r.Migrate(ctx)
	require.NoError(t, err)

	before, err := store.GetHistory(ctx)
	require.NoError(t, err)

	result, err := r.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Applied)

	after, err := store.GetHistory(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMigrate_incremental_appliesOnlyNewScripts(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	files := shelfScripts()
	first := scriptFS(map[string]string{"V1__create_shelves.sql": files["V1__create_shelves.sql"]})

	r1, _ := newTestRunner(pool, first)
	_, err := r1.Migrate(ctx)
	require.NoError(t, err)

	var started []string
	r2, _ := newTestRunner(pool, scriptFS(files), runner.WithProgressCallback(func(e runner.ProgressEvent) {
		if e.Status == runner.StatusStarting {
			started = append(started, e.Script.Version.String())
		}
	}))

	result, err := r2.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, started)
	assert.Equal(t, "1", result.InitialVersion.String())
}

func TestMigrate_failingScript_rolledBackAndNotApplied(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	files := shelfScripts()
	files["V2__create_copies.sql"] = "CREATE TABLE copies (id SERIAL PRIMARY KEY);\nINSERT INTO missing_table VALUES (1);"

	r, store := newTestRunner(pool, scriptFS(files))

	_, err := r.Migrate(ctx)
	require.ErrorIs(t, err, runner.ErrExecutionFailed)

	var execErr *runner.MigrationExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "2", execErr.Version)

	assert.False(t, tableExists(t, pool, "copies"), "partial effects must be rolled back")
	assert.False(t, hasColumn(t, pool, "shelves", "location"), "later scripts must not run")

	versions, err := store.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1": true}, versions)

	report, err := r.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, runner.StateFailed, stateOf(report, "2"))

	// Fixing the script lets the next run pick it up again.
	files["V2__create_copies.sql"] = "CREATE TABLE copies (id SERIAL PRIMARY KEY);"
	fixed, _ := newTestRunner(pool, scriptFS(files))

	result, err := fixed.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", result.CurrentVersion.String())
}

func TestMigrate_checksumTamper_detectedBeforeExecution(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	files := shelfScripts()
	applied := scriptFS(map[string]string{"V1__create_shelves.sql": files["V1__create_shelves.sql"]})

	r1, _ := newTestRunner(pool, applied)
	_, err := r1.Migrate(ctx)
	require.NoError(t, err)

	files["V1__create_shelves.sql"] = "CREATE TABLE shelves (id BIGSERIAL PRIMARY KEY, name TEXT NOT NULL);"
	r2, _ := newTestRunner(pool, scriptFS(files))

	_, err = r2.Migrate(ctx)
	require.ErrorIs(t, err, runner.ErrChecksumMismatch)

	assert.False(t, tableExists(t, pool, "copies"), "no pending script may run after a checksum mismatch")
	require.ErrorIs(t, r2.Validate(ctx), runner.ErrChecksumMismatch)
}

func TestMigrate_statementTimeout_abortsScript(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	r, store := newTestRunner(pool, scriptFS(map[string]string{
		"V1__slow.sql": "SELECT pg_sleep(5);",
	}), runner.WithStatementTimeout(200*time.Millisecond))

	_, err := r.Migrate(ctx)
	require.ErrorIs(t, err, runner.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "statement timeout")

	versions, err := store.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)

	var timeout string
	require.NoError(t, pool.QueryRow(ctx, "SHOW statement_timeout").Scan(&timeout))
	assert.Equal(t, "0", timeout, "SET LOCAL must not leak to pooled sessions")
}

func TestMigrate_concurrentRunners_applyEachScriptOnce(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	const runners = 4

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
		errs    []error
	)

	for range runners {
		wg.Add(1)

		go func() {
			defer wg.Done()

			r, _ := newTestRunner(pool, scriptFS(shelfScripts()), runner.WithLockWait(30*time.Second))
			result, err := r.Migrate(ctx)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				errs = append(errs, err)
				return
			}

			applied += len(result.Applied)
		}()
	}

	wg.Wait()

	require.Empty(t, errs)
	assert.Equal(t, 3, applied)
}

func TestInfo_readOnlyOnFreshDatabase(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()
	r, store := newTestRunner(pool, scriptFS(shelfScripts()),
		runner.WithTarget(migration.MustParseVersion("2")))

	report, err := r.Info(ctx)
	require.NoError(t, err)

	assert.Equal(t, runner.BaselineVersion, report.CurrentVersion)
	assert.Equal(t, 3, report.TotalMigrations)
	assert.Equal(t, runner.StatePending, stateOf(report, "1"))
	assert.Equal(t, runner.StateAboveTarget, stateOf(report, "3"))

	exists, err := store.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func stateOf(report *runner.Report, version string) runner.State {
	for _, m := range report.Migrations {
		if m.Version == version {
			return m.State
		}
	}

	return ""
}

func hasColumn(t *testing.T, pool *pgxpool.Pool, table, column string) bool {
	t.Helper()

	var exists bool
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = $1 AND column_name = $2)`,
		table, column,
	).Scan(&exists))

	return exists
}
