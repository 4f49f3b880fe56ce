package commands

import (
	"teamclock/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		db, err := openDB(cmd, cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		logger.Info("schema migrated", "driver", cfg.DatabaseDriver)
		return nil
	},
}
