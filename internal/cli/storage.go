package cli

import (
	"bytes"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"go-album-center/internal/storage"
)

// probeID is far above any id the database hands out.
const probeID = math.MaxUint32

var (
	storageCmd = &cobra.Command{
		Use:   "storage",
		Short: "Blob storage related commands",
	}

	storageCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Write, read back and delete a probe blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			blobs, err := storage.New(cmd.Context(), cfg.Storage, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			probe := []byte("album-center storage probe")
			fmt.Fprintf(out, "Checking %s storage...\n", blobs.Provider())

			if err := blobs.Write(cmd.Context(), probeID, probe); err != nil {
				return fmt.Errorf("write: %w", err)
			}
			fmt.Fprintln(out, " - write ok")

			data, err := blobs.Read(cmd.Context(), probeID)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			if !bytes.Equal(data, probe) {
				return fmt.Errorf("read: got %d bytes back, want %d", len(data), len(probe))
			}
			fmt.Fprintln(out, " - read ok")

			if err := blobs.Delete(cmd.Context(), probeID); err != nil {
				return fmt.Errorf("delete: %w", err)
			}
			fmt.Fprintln(out, " - delete ok")
			return nil
		},
	}
)

func registerStorageCommands() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(storageCheckCmd)
}
