package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adpulse-labs/adpulse/internal/state"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending store schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Verbose)

			store, err := state.NewStore(cfg.Driver, logger)
			if err != nil {
				return err
			}
			if err := store.Open(cfg.DSN); err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
