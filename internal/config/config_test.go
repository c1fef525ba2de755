package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/library-catalog/internal/config"
)

func TestNew_returnsDefaults(t *testing.T) {
	t.Parallel()

	cfg := config.New()

	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.MigrationsDir, "empty selects embedded scripts")
	assert.Equal(t, config.DefaultHistoryTable, cfg.HistoryTable)
	assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
	assert.Equal(t, config.DefaultStatementTimeout, cfg.StatementTimeout)
	assert.Equal(t, config.DefaultLockWait, cfg.LockWait)
	assert.Equal(t, config.DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.DefaultLogFormat, cfg.LogFormat)
	assert.Equal(t, int32(config.DefaultMaxConns), cfg.MaxConns)
	assert.False(t, cfg.OutOfOrder)
	assert.False(t, cfg.IgnoreMissing)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		content      string
		allowMissing bool
		writeFile    bool
		wantErr      bool
		errContains  string
		check        func(t *testing.T, cfg *config.Config)
	}{
		{
			name:      "valid file parses all fields",
			writeFile: true,
			content: `database_url: "postgres://localhost:5432/library"
migrations_dir: "./db/migrations"
history_table: "audit.schema_history"
lock_timeout: "10s"
statement_timeout: "1m"
lock_wait: "2m"
out_of_order: true
ignore_missing: true
http_addr: "127.0.0.1:9000"
log_level: "debug"
log_format: "json"
max_conns: 12
`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "postgres://localhost:5432/library", cfg.DatabaseURL)
				assert.Equal(t, "./db/migrations", cfg.MigrationsDir)
				assert.Equal(t, "audit.schema_history", cfg.HistoryTable)
				assert.Equal(t, 10*time.Second, cfg.LockTimeout)
				assert.Equal(t, time.Minute, cfg.StatementTimeout)
				assert.Equal(t, 2*time.Minute, cfg.LockWait)
				assert.True(t, cfg.OutOfOrder)
				assert.True(t, cfg.IgnoreMissing)
				assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "json", cfg.LogFormat)
				assert.Equal(t, int32(12), cfg.MaxConns)
			},
		},
		{
			name:      "partial file applies defaults",
			writeFile: true,
			content:   `database_url: "postgres://localhost/library"`,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "postgres://localhost/library", cfg.DatabaseURL)
				assert.Equal(t, config.DefaultHistoryTable, cfg.HistoryTable)
				assert.Equal(t, config.DefaultLockTimeout, cfg.LockTimeout)
				assert.Equal(t, config.DefaultStatementTimeout, cfg.StatementTimeout)
				assert.Equal(t, config.DefaultHTTPAddr, cfg.HTTPAddr)
			},
		},
		{
			name:      "empty file returns defaults",
			writeFile: true,
			content:   "",
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.New(), cfg)
			},
		},
		{
			name:         "missing file with allowMissing returns defaults",
			allowMissing: true,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.New(), cfg)
			},
		},
		{
			name:        "missing file without allowMissing returns error",
			wantErr:     true,
			errContains: "reading config file",
		},
		{
			name:        "invalid YAML returns error",
			writeFile:   true,
			content:     "{{{invalid yaml",
			wantErr:     true,
			errContains: "parsing config file",
		},
		{
			name:        "invalid lock_timeout duration returns error",
			writeFile:   true,
			content:     `lock_timeout: "not-a-duration"`,
			wantErr:     true,
			errContains: "parsing lock_timeout",
		},
		{
			name:        "invalid lock_wait duration returns error",
			writeFile:   true,
			content:     `lock_wait: "garbage"`,
			wantErr:     true,
			errContains: "parsing lock_wait",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, config.DefaultFile)

			if tt.writeFile {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			}

			cfg, err := config.Load(path, tt.allowMissing)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestMergeEnv_overridesFields(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *config.Config)
	}{
		{
			name: "overrides database URL",
			env:  map[string]string{"LIBRARY_DATABASE_URL": "postgres://env-host/db"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "postgres://env-host/db", cfg.DatabaseURL)
			},
		},
		{
			name: "overrides migrations dir",
			env:  map[string]string{"LIBRARY_MIGRATIONS_DIR": "/custom/path"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "/custom/path", cfg.MigrationsDir)
			},
		},
		{
			name: "overrides durations",
			env: map[string]string{
				"LIBRARY_LOCK_TIMEOUT":      "15s",
				"LIBRARY_STATEMENT_TIMEOUT": "2m",
				"LIBRARY_LOCK_WAIT":         "1s",
			},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, 15*time.Second, cfg.LockTimeout)
				assert.Equal(t, 2*time.Minute, cfg.StatementTimeout)
				assert.Equal(t, time.Second, cfg.LockWait)
			},
		},
		{
			name: "overrides flags and numbers",
			env: map[string]string{
				"LIBRARY_OUT_OF_ORDER":   "true",
				"LIBRARY_IGNORE_MISSING": "1",
				"LIBRARY_MAX_CONNS":      "20",
				"LIBRARY_HTTP_ADDR":      ":9090",
			},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.True(t, cfg.OutOfOrder)
				assert.True(t, cfg.IgnoreMissing)
				assert.Equal(t, int32(20), cfg.MaxConns)
				assert.Equal(t, ":9090", cfg.HTTPAddr)
			},
		},
		{
			name: "unset env vars preserve original",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, config.New(), cfg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := config.New()
			require.NoError(t, config.MergeEnv(cfg))

			tt.check(t, cfg)
		})
	}
}

func TestMergeEnv_invalidValue(t *testing.T) {
	t.Setenv("LIBRARY_LOCK_TIMEOUT", "not-valid")

	cfg := config.New()
	err := config.MergeEnv(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing environment")
}
