package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/aqasim81/library-catalog/internal/config"
	"github.com/aqasim81/library-catalog/internal/database"
	"github.com/aqasim81/library-catalog/internal/migration"
	"github.com/aqasim81/library-catalog/internal/runner"
	"github.com/aqasim81/library-catalog/internal/tracker"
	"github.com/aqasim81/library-catalog/migrations"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (set --database-url, LIBRARY_DATABASE_URL, or database_url in config)",
)

// newRegistry serves the embedded scripts unless a directory is configured.
func newRegistry(cfg *config.Config) (*migration.Registry, error) {
	if cfg.MigrationsDir == "" {
		return migration.NewRegistry(migrations.FS), nil
	}

	info, err := os.Stat(cfg.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", cfg.MigrationsDir, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("reading migrations directory %s: not a directory", cfg.MigrationsDir)
	}

	return migration.NewRegistry(os.DirFS(cfg.MigrationsDir)), nil
}

func connectDB(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errDatabaseURLRequired
	}

	logger.InfoContext(ctx, "connecting to database", "url", config.RedactURL(cfg.DatabaseURL))

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}

// newRunner wires a Runner from configuration; extra options win over config.
func newRunner(pool *pgxpool.Pool, registry *migration.Registry, cfg *config.Config, logger *slog.Logger, extra ...runner.Option) *runner.Runner {
	opts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithLockWait(cfg.LockWait),
		runner.WithLockTimeout(cfg.LockTimeout),
		runner.WithStatementTimeout(cfg.StatementTimeout),
		runner.WithOutOfOrder(cfg.OutOfOrder),
		runner.WithIgnoreMissing(cfg.IgnoreMissing),
	}

	return runner.New(pool, registry, tracker.New(pool, cfg.HistoryTable), append(opts, extra...)...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
