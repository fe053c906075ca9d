package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg, "stderr")
			if err != nil {
				return err
			}
			defer logger.Close()

			store, err := openStore(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer store.Close()

			applied, err := store.AppliedMigrations(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "database: %s\n", store.Path())
			for _, name := range applied {
				fmt.Fprintf(out, "applied: %s\n", name)
			}
			return nil
		},
	}
}
