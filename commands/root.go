package commands

import (
	"fmt"
	"log/slog"
	"os"

	"teamclock/config"
	"teamclock/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "teamclock",
	Short: "Team time tracking API",
	Long: `teamclock runs the time tracking API: clock-in and clock-out sessions,
tasks, teams, daily statuses and working hours.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file loaded before reading the environment")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
}

// setup loads the configuration and builds the process logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return cfg, logger, nil
}

// openDB connects and migrates the schema.
func openDB(cmd *cobra.Command, cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(database.Options{
		Driver:   cfg.DatabaseDriver,
		DSN:      cfg.DatabaseURL,
		LogLevel: cfg.DBLogLevel,
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cmd.Context(), db); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
