package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-album-center/internal/export"
)

var (
	exportFormat string

	exportCmd = &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every media, its rendered derivatives and a catalog into dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := export.New(a.library(nil), a.log).WriteDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d media and %d derivatives to %s\n", stats.Media, stats.Derivatives, args[0])
			return nil
		},
	}

	catalogCmd = &cobra.Command{
		Use:   "catalog",
		Short: "Print the item catalog to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := export.New(a.library(nil), a.log).Catalog(cmd.Context())
			if err != nil {
				return err
			}
			switch exportFormat {
			case "csv":
				return export.WriteCSV(cmd.OutOrStdout(), entries)
			case "json":
				return export.WriteJSON(cmd.OutOrStdout(), entries)
			default:
				return fmt.Errorf("unknown format %q", exportFormat)
			}
		},
	}
)

func registerExportCommands() {
	catalogCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "csv or json")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(catalogCmd)
}
