package main

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/credo/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create any missing tables and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		return database.Migrate(cmd.Context(), db)
	},
}
