package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aqasim81/library-catalog/internal/config"
	"github.com/aqasim81/library-catalog/internal/logging"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// appLogger is built from AppConfig during PersistentPreRunE.
var appLogger = slog.New(slog.DiscardHandler) //nolint:gochecknoglobals // set alongside AppConfig

// rootCmd is the base command for the library CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "library",
	Version: version,
	Short:   "Library catalog service with versioned PostgreSQL migrations",
	Long: `library serves a REST API over a book catalog stored in PostgreSQL.
Its schema is produced by numbered SQL scripts (V{version}__{description}.sql)
that are applied in order, each in its own transaction, and recorded in a
schema history table.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}

		return setupLogger(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.PersistentFlags().String("config", config.DefaultFile, "path to configuration file")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("migrations-dir", "", "directory of migration scripts (default: embedded scripts)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json)")
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads configuration with precedence: flag > env > file > defaults.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := config.MergeEnv(cfg); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	mergeFlags(cmd, cfg)

	AppConfig = cfg

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	overrides := []struct {
		flag string
		dst  *string
	}{
		{"database-url", &cfg.DatabaseURL},
		{"migrations-dir", &cfg.MigrationsDir},
		{"log-level", &cfg.LogLevel},
		{"log-format", &cfg.LogFormat},
	}

	for _, s := range overrides {
		if cmd.Flags().Changed(s.flag) {
			*s.dst, _ = cmd.Flags().GetString(s.flag)
		}
	}
}

func setupLogger(cmd *cobra.Command) error {
	logger, err := logging.New(cmd.ErrOrStderr(), AppConfig.LogLevel, AppConfig.LogFormat)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	appLogger = logger

	return nil
}
