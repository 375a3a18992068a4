package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Zchasse63/voice-fit-sub003/db"
	"github.com/Zchasse63/voice-fit-sub003/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Applies all pending schema migrations to the configured PostgreSQL
database. Safe to run repeatedly: an up-to-date schema is not an error.
Refuses to run against a dirty schema; fix it manually first.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
