// Package commands defines the adpulse command tree.
package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/adpulse-labs/adpulse/internal/cli/config"
)

// NewRootCmd builds the adpulse root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adpulse",
		Short:         "Weekly ad performance snapshot engine",
		Long:          "adpulse aggregates daily ad platform metrics into weekly per-client performance snapshots.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to config file (default "+config.DefaultFile+")")
	root.PersistentFlags().String("driver", "sqlite", "store backend: sqlite or postgres")
	root.PersistentFlags().String("dsn", ".adpulse/adpulse.db", "sqlite file path or postgres connection URL")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging and per-client output")

	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command and reports whether it succeeded.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves the layered configuration for a command
// invocation.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, cmd.Flags())
}

// newLogger builds the CLI logger. Logs go to stderr; stdout is reserved
// for command output.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
