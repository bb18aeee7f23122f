package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-album-center/database/migrations"
	"go-album-center/internal/database"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := database.Open(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			if err := migrations.Migrate(db); err != nil {
				return err
			}
			log.Info().Str("type", cfg.Database.Type).Msg("schema is up to date")
			return nil
		},
	}

	dbListCmd = &cobra.Command{
		Use:   "ls",
		Short: "List the supported database types",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Supported database types:")
			for _, t := range database.Types() {
				fmt.Fprintln(cmd.OutOrStdout(), " - "+t)
			}
		},
	}
)

func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(migrateCmd)

	dbCmd.AddCommand(dbListCmd)
}
