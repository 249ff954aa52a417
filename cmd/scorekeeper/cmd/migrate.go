package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tiendita/scorekeeper/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "show migration status instead of applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if statusOnly, _ := cmd.Flags().GetBool("status"); statusOnly {
		statuses, err := db.MigrateStatus(database)
		if err != nil {
			return err
		}
		for _, status := range statuses {
			state := "pending"
			if status.Applied {
				state = "applied"
				if status.AppliedAt != nil {
					state = fmt.Sprintf("applied %s", status.AppliedAt.Format(time.RFC3339))
				}
			}
			fmt.Printf("%s  %s\n", status.ID, state)
		}
		return nil
	}

	if err := db.MigrateUp(database); err != nil {
		return err
	}
	fmt.Println("Migrations applied.")
	return nil
}
