package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/config"
	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/logging"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "aparetext",
	Short:         "aparetext - text expansion snippets from the command line",
	Long:          "aparetext stores versioned text snippets with template variables, expands them by abbreviation and reports how they are used.",
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			loaded.Log.Format = logFormat
		}
		cfg = loaded
		// Logs go to stderr so stdout stays clean for output and the MCP protocol.
		logger = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/aparetext/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newAddCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newEditCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newExpandCmd())
	rootCmd.AddCommand(newVersionsCmd())
	rootCmd.AddCommand(newRestoreCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
}

// withDB opens the configured database for the duration of fn.
func withDB(cmd *cobra.Command, fn func(ctx context.Context, dbCtx *database.Context) error) error {
	dbCtx, err := database.CreateDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		_ = database.CloseDatabase(dbCtx)
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, dbCtx)
}
