package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "validate",
	Short: "Check migration scripts and recorded checksums",
	Long: `Load and parse every migration script, rejecting invalid SQL, duplicate
versions and statements that cannot run in a transaction. When a database URL
is configured, also verify applied checksums and version ordering.`,
	RunE: runValidate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig
	out := cmd.OutOrStdout()

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	scripts, err := registry.ListScripts()
	if err != nil {
		return err
	}

	if cfg.DatabaseURL == "" {
		fmt.Fprintf(out, "%d migration script(s) valid (database not checked).\n", len(scripts))
		return nil
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := newRunner(pool, registry, cfg, appLogger).Validate(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "%d migration script(s) valid; schema history consistent.\n", len(scripts))

	return nil
}
