package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aqasim81/library-catalog/internal/api"
	"github.com/aqasim81/library-catalog/internal/runner"
)

// errInvalidFormat is returned for an unknown --format value.
var errInvalidFormat = errors.New("invalid format (must be text or json)")

var infoCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "info",
	Short: "Show migration status",
	Long: `Display every resolved or recorded migration with its state. The
schema history table is read but never created.`,
	RunE: runInfo,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	infoCmd.Flags().String("format", "text", "output format (text, json)")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("%w: %q", errInvalidFormat, format)
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

	report, err := newRunner(pool, registry, cfg, appLogger).Info(ctx)
	if err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), report, format)
}

func writeReport(out io.Writer, report *runner.Report, format string) error {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(api.NewMigrationInfoResponse(report))
	}

	fmt.Fprintf(out, "Current version: %s\n", report.CurrentVersion)
	fmt.Fprintf(out, "Migrations: %d\n\n", report.TotalMigrations)

	if len(report.Migrations) == 0 {
		fmt.Fprintln(out, "No migrations found.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tDESCRIPTION\tTYPE\tINSTALLED ON\tSTATE")

	for _, m := range report.Migrations {
		installed := ""
		if m.InstalledOn != nil {
			installed = m.InstalledOn.Format("2006-01-02 15:04:05")
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Version, m.Description, m.Type, installed, m.State)
	}

	return tw.Flush()
}
