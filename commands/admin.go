package commands

import (
	"fmt"
	"strings"

	"teamclock/database"

	"github.com/spf13/cobra"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account if it does not exist yet",
	Long: `Create an admin account. Credentials default to ADMIN_EMAIL and
ADMIN_PASSWORD and can be overridden with flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" {
			email = cfg.AdminEmail
		}
		if password == "" {
			password = cfg.AdminPassword
		}
		email = strings.ToLower(strings.TrimSpace(email))

		db, err := openDB(cmd, cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		created, err := database.SeedAdmin(cmd.Context(), db, logger, email, password)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "User %s already exists\n", email)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Admin %s created\n", email)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().String("email", "", "admin email (default ADMIN_EMAIL)")
	createAdminCmd.Flags().String("password", "", "admin password (default ADMIN_PASSWORD)")
}
