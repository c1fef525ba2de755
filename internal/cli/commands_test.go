package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/library-catalog/internal/config"
	"github.com/aqasim81/library-catalog/internal/migration"
	"github.com/aqasim81/library-catalog/internal/parser"
	"github.com/aqasim81/library-catalog/internal/runner"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	t.Run("embedded scripts by default", func(t *testing.T) {
		t.Parallel()

		reg, err := newRegistry(config.New())
		require.NoError(t, err)

		scripts, err := reg.ListScripts()
		require.NoError(t, err)
		assert.NotEmpty(t, scripts)
	})

	t.Run("configured directory", func(t *testing.T) {
		t.Parallel()

		cfg := config.New()
		cfg.MigrationsDir = "./testdata/migrations"

		reg, err := newRegistry(cfg)
		require.NoError(t, err)

		scripts, err := reg.ListScripts()
		require.NoError(t, err)
		require.Len(t, scripts, 2)
		assert.Equal(t, "1.1", scripts[1].Version.String())
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()

		cfg := config.New()
		cfg.MigrationsDir = "/nonexistent/path"

		_, err := newRegistry(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading migrations directory")
	})
}

func TestMigrateOptions(t *testing.T) {
	t.Parallel()

	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().Bool("dry-run", false, "")
		cmd.Flags().String("target", "", "")
		cmd.Flags().Bool("out-of-order", false, "")
		cmd.Flags().Duration("lock-timeout", 0, "")
		cmd.Flags().Duration("statement-timeout", 0, "")

		return cmd
	}

	cmd := newCmd()
	require.NoError(t, cmd.Flags().Set("dry-run", "true"))
	require.NoError(t, cmd.Flags().Set("target", "3"))
	require.NoError(t, cmd.Flags().Set("lock-timeout", "2s"))

	opts, dryRun, err := migrateOptions(cmd)
	require.NoError(t, err)
	assert.True(t, dryRun)
	assert.Len(t, opts, 3)

	cmd = newCmd()
	require.NoError(t, cmd.Flags().Set("target", "v3"))

	_, _, err = migrateOptions(cmd)
	require.ErrorIs(t, err, migration.ErrInvalidVersion)
}

func TestProgressPrinter(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	emit := progressPrinter(buf)
	s := &migration.Script{Version: migration.MustParseVersion("2"), Filename: "V2__add_books_table.sql"}

	emit(runner.ProgressEvent{Script: s, Status: runner.StatusSkipped})
	emit(runner.ProgressEvent{Script: s, Status: runner.StatusStarting})
	emit(runner.ProgressEvent{Script: s, Status: runner.StatusCompleted, Duration: 1500 * time.Microsecond})
	emit(runner.ProgressEvent{Script: s, Status: runner.StatusStarting})
	emit(runner.ProgressEvent{Script: s, Status: runner.StatusFailed, Error: errors.New("boom")})
	emit(runner.ProgressEvent{Script: s, Status: runner.StatusPending})

	assert.Equal(t,
		"  Applying V2__add_books_table.sql ... done (1ms)\n"+
			"  Applying V2__add_books_table.sql ... FAILED\n"+
			"    Error: boom\n"+
			"  Would apply V2__add_books_table.sql\n",
		buf.String())
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	v := migration.MustParseVersion

	tests := []struct {
		name   string
		result *runner.Result
		dryRun bool
		want   string
	}{
		{
			name:   "applied",
			result: &runner.Result{CurrentVersion: v("6"), Applied: make([]migration.Script, 6)},
			want:   "Migrate complete: 6 applied, version baseline -> 6.",
		},
		{
			name:   "up to date",
			result: &runner.Result{InitialVersion: v("6"), CurrentVersion: v("6")},
			want:   "Schema is up to date at version 6.",
		},
		{
			name:   "dry run",
			result: &runner.Result{InitialVersion: v("4"), CurrentVersion: v("4"), Pending: make([]migration.Script, 2)},
			dryRun: true,
			want:   "Dry run complete: 2 migration(s) would be applied (current version 4).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := new(bytes.Buffer)
			printResult(buf, tt.result, tt.dryRun)

			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	installed := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	report := &runner.Report{
		TotalMigrations: 2,
		CurrentVersion:  "1",
		Migrations: []runner.MigrationInfo{
			{Version: "1", Description: "create categories table", Type: "SQL", State: runner.StateSuccess, InstalledOn: &installed},
			{Version: "2", Description: "add books table", Type: "SQL", State: runner.StatePending},
		},
	}

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		require.NoError(t, writeReport(buf, report, "text"))

		out := buf.String()
		assert.Contains(t, out, "Current version: 1")
		assert.Contains(t, out, "2026-10-01 09:30:00")
		assert.Contains(t, out, "add books table")
		assert.Contains(t, out, "Pending")
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		require.NoError(t, writeReport(buf, report, "json"))

		assert.Contains(t, buf.String(), `"enabled": true`)
		assert.Contains(t, buf.String(), `"currentVersion": "1"`)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		require.NoError(t, writeReport(buf, &runner.Report{CurrentVersion: runner.BaselineVersion}, "text"))
		assert.Contains(t, buf.String(), "No migrations found.")
	})
}

// Tests below write to the global AppConfig; they must NOT be parallel.

func TestRunValidate_offline(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	AppConfig = config.New()
	AppConfig.MigrationsDir = "./testdata/migrations"

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, runValidate(cmd, nil))
	assert.Contains(t, buf.String(), "2 migration script(s) valid (database not checked)")
}

func TestRunValidate_rejectsNonTransactionalScript(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	AppConfig = config.New()
	AppConfig.MigrationsDir = "./testdata/invalid"

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))

	err := runValidate(cmd, nil)
	require.ErrorIs(t, err, migration.ErrRegistry)
	require.ErrorIs(t, err, parser.ErrNonTransactional)
}

func TestRunMigrate_noDatabaseURL_returnsError(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	AppConfig = config.New()

	cmd := &cobra.Command{}
	cmd.Flags().Bool("dry-run", false, "")
	cmd.Flags().String("target", "", "")
	cmd.SetOut(new(bytes.Buffer))

	err := runMigrate(cmd, nil)
	require.ErrorIs(t, err, errDatabaseURLRequired)
}

func TestRunInfo_invalidFormat(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	AppConfig = config.New()

	cmd := &cobra.Command{}
	cmd.Flags().String("format", "xml", "")

	require.ErrorIs(t, runInfo(cmd, nil), errInvalidFormat)
}

func TestServe_shutsDownOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Addr: "127.0.0.1:0", ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)

	go func() { done <- serve(ctx, srv, slog.New(slog.DiscardHandler)) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_listenError(t *testing.T) {
	t.Parallel()

	srv := &http.Server{Addr: "127.0.0.1:-1", ReadHeaderTimeout: time.Second}

	err := serve(context.Background(), srv, slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http server")
}
