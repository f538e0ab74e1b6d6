package main

import (
	"github.com/deppfellow/aquaservice/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var target int32

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loggerService, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer loggerService.Shutdown()

			return database.Migrate(cmd.Context(), log, cfg.Database.DSN(), target)
		},
	}
	cmd.Flags().Int32Var(&target, "to", -1, "target schema version, -1 for the latest")
	return cmd
}
