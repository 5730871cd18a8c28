package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gear6io/syncbridge/internal/config"
	"github.com/gear6io/syncbridge/internal/obsv"
)

var syncTable string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync cycle for a configured table",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger, err := config.SetupLogger(cfg)
		if err != nil {
			return err
		}

		tables, err := findTables(cfg, syncTable)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			return fmt.Errorf("no tables configured")
		}

		obsv.Register()

		for _, t := range tables {
			coord, opts, err := buildCoordinator(cfg, t, logger)
			if err != nil {
				return err
			}
			result := coord.Sync(cmd.Context(), opts)
			obsv.RecordCycle(obsv.CycleObserved{
				Table:     t.IcebergTable,
				Success:   result.Success,
				Extracted: result.Extracted,
				Imported:  result.Imported,
				Duration:  result.Duration,
			})
			if !result.Success {
				return fmt.Errorf("sync failed for table %q: %s", t.IcebergTable, result.ErrorMessage)
			}
			fmt.Printf("%s: extracted=%d imported=%d inserted=%d updated=%d duration=%s\n",
				t.IcebergTable, result.Extracted, result.Imported, result.Inserted, result.Updated, result.Duration)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncTable, "table", "", "iceberg_table to sync (default: all configured tables)")
}
