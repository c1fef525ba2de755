//go:build integration

package integration

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aqasim81/library-catalog/internal/migration"
	"github.com/aqasim81/library-catalog/internal/runner"
	"github.com/aqasim81/library-catalog/internal/tracker"
)

const (
	postgresImage = "postgres:16-alpine"
	testDB        = "library_test"
	testUser      = "library"
	testPassword  = "library"
)

// SetupPostgresDSN starts a PostgreSQL 16 container and returns its connection URL.
// The container is terminated when the test completes.
func SetupPostgresDSN(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDB,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return "postgres://" + testUser + ":" + testPassword + "@" + host + ":" + port.Port() + "/" + testDB + "?sslmode=disable"
}

// SetupPostgres starts a PostgreSQL 16 container and returns a connection pool.
// The container and pool are automatically cleaned up when the test completes.
func SetupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, SetupPostgresDSN(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
	})

	require.NoError(t, pool.Ping(ctx))

	return pool
}

// scriptFS builds an in-memory migrations directory from filename/SQL pairs.
func scriptFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, sql := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(sql)}
	}

	return fsys
}

// newTestRunner builds a Runner over fsys with the default history table.
func newTestRunner(pool *pgxpool.Pool, fsys fstest.MapFS, opts ...runner.Option) (*runner.Runner, *tracker.Tracker) {
	store := tracker.New(pool, tracker.DefaultTable)

	return runner.New(pool, migration.NewRegistry(fsys), store, opts...), store
}

func tableExists(t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()

	var exists bool
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists))

	return exists
}
