package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/library-catalog/internal/migration"
	"github.com/aqasim81/library-catalog/internal/runner"
)

var migrateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "migrate",
	Short: "Apply pending migrations",
	Long: `Apply pending migration scripts in ascending version order. Each script
runs in its own transaction together with its schema history record; the
first failure stops the run.`,
	RunE: runMigrate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	migrateCmd.Flags().Bool("dry-run", false, "show what would be applied without executing")
	migrateCmd.Flags().String("target", "", "stop at this version (default: latest)")
	migrateCmd.Flags().Bool("out-of-order", false, "apply pending scripts older than the current version")
	migrateCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	migrateCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	opts, dryRun, err := migrateOptions(cmd)
	if err != nil {
		return err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer pool.Close()

	opts = append(opts, runner.WithProgressCallback(progressPrinter(out)))
	r := newRunner(pool, registry, cfg, appLogger, opts...)

	if dryRun {
		fmt.Fprintln(out, "--- DRY RUN (no changes will be made) ---")
	}

	result, err := r.Migrate(ctx)
	if err != nil {
		return err
	}

	printResult(out, result, dryRun)

	return nil
}

// migrateOptions turns the migrate flags into runner options.
func migrateOptions(cmd *cobra.Command) ([]runner.Option, bool, error) {
	var opts []runner.Option

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	opts = append(opts, runner.WithDryRun(dryRun))

	if target, _ := cmd.Flags().GetString("target"); target != "" {
		v, err := migration.ParseVersion(target)
		if err != nil {
			return nil, false, fmt.Errorf("--target: %w", err)
		}

		opts = append(opts, runner.WithTarget(v))
	}

	if cmd.Flags().Changed("out-of-order") {
		b, _ := cmd.Flags().GetBool("out-of-order")
		opts = append(opts, runner.WithOutOfOrder(b))
	}

	if cmd.Flags().Changed("lock-timeout") {
		d, _ := cmd.Flags().GetDuration("lock-timeout")
		opts = append(opts, runner.WithLockTimeout(d))
	}

	if cmd.Flags().Changed("statement-timeout") {
		d, _ := cmd.Flags().GetDuration("statement-timeout")
		opts = append(opts, runner.WithStatementTimeout(d))
	}

	return opts, dryRun, nil
}

func progressPrinter(out io.Writer) func(runner.ProgressEvent) {
	return func(event runner.ProgressEvent) {
		switch event.Status {
		case runner.StatusStarting:
			fmt.Fprintf(out, "  Applying %s ... ", event.Script.Filename)
		case runner.StatusCompleted:
			fmt.Fprintf(out, "done (%s)\n", event.Duration.Truncate(time.Millisecond))
		case runner.StatusFailed:
			fmt.Fprintf(out, "FAILED\n")
			fmt.Fprintf(out, "    Error: %v\n", event.Error)
		case runner.StatusPending:
			fmt.Fprintf(out, "  Would apply %s\n", event.Script.Filename)
		}
	}
}

func printResult(out io.Writer, result *runner.Result, dryRun bool) {
	from := versionOrBaseline(result.InitialVersion)
	to := versionOrBaseline(result.CurrentVersion)

	switch {
	case dryRun:
		fmt.Fprintf(out, "\nDry run complete: %d migration(s) would be applied (current version %s).\n",
			len(result.Pending), from)
	case len(result.Applied) == 0:
		fmt.Fprintf(out, "Schema is up to date at version %s.\n", to)
	default:
		fmt.Fprintf(out, "\nMigrate complete: %d applied, version %s -> %s.\n", len(result.Applied), from, to)
	}
}

func versionOrBaseline(v migration.Version) string {
	if v.IsZero() {
		return runner.BaselineVersion
	}

	return v.String()
}
