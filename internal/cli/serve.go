package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/aqasim81/library-catalog/internal/api"
	"github.com/aqasim81/library-catalog/internal/catalog"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "serve",
	Short: "Migrate the database, then serve the REST API",
	Long: `Apply pending migrations and, only if that succeeds, start the HTTP
server. The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cmd.Flags().Changed("addr") {
		cfg.HTTPAddr, _ = cmd.Flags().GetString("addr")
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := connectDB(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer pool.Close()

	r := newRunner(pool, registry, cfg, appLogger)

	result, err := r.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	appLogger.InfoContext(ctx, "database ready",
		"version", versionOrBaseline(result.CurrentVersion),
		"applied", len(result.Applied),
	)

	gin.SetMode(gin.ReleaseMode)

	router := api.NewRouter(api.Deps{
		Books:      catalog.NewBookService(pool),
		Categories: catalog.NewCategoryService(pool),
		Borrowings: catalog.NewBorrowingService(pool),
		Migrations: r,
		Logger:     appLogger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return serve(ctx, srv, appLogger)
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)

	go func() {
		logger.InfoContext(ctx, "http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	return nil
}
