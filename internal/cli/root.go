// Package cli is syncbridge's thin command-line surface: flag parsing and
// wiring into internal/syncengine.Coordinator and internal/icebergfmt.Reader.
// No sync, merge, or Iceberg logic lives here.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "syncbridge",
	Short: "Bidirectional incremental sync between a SQL database and Iceberg",
	Long: `syncbridge extracts an incremental delta from a source database,
appends it to a local Iceberg table, and merges it into a target database —
tracking progress with a per-table watermark so repeated cycles are safe.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to syncbridge config file")
	rootCmd.AddCommand(syncCmd, watchCmd, readCmd)
}
