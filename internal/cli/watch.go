package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gear6io/syncbridge/internal/config"
	"github.com/gear6io/syncbridge/internal/obsv"
)

var (
	watchTable    string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run sync cycles periodically until interrupted",
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

		tables, err := findTables(cfg, watchTable)
		if err != nil {
			return err
		}
		if len(tables) == 0 {
			return fmt.Errorf("no tables configured")
		}

		obsv.Register()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			logger.Info().Msg("shutdown signal received")
			cancel()
		}()

		if cfg.Metrics.Enabled {
			addr := fmt.Sprintf("%s:%d", cfg.Metrics.Address, cfg.Metrics.Port)
			metricsSrv := obsv.NewServer(addr, obsv.NewRegistry())
			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil {
					logger.Error().Err(err).Msg("metrics server stopped")
				}
			}()
			defer metricsSrv.Shutdown(context.Background())
			logger.Info().Str("addr", addr).Msg("metrics server listening")
		}

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		runOnce := func() {
			for _, t := range tables {
				coord, opts, err := buildCoordinator(cfg, t, logger)
				if err != nil {
					logger.Error().Err(err).Str("table", t.IcebergTable).Msg("failed to build coordinator")
					continue
				}
				result := coord.Sync(ctx, opts)
				obsv.RecordCycle(obsv.CycleObserved{
					Table:     t.IcebergTable,
					Success:   result.Success,
					Extracted: result.Extracted,
					Imported:  result.Imported,
					Duration:  result.Duration,
				})
				if !result.Success {
					logger.Error().Str("table", t.IcebergTable).Str("error", result.ErrorMessage).Msg("sync cycle failed")
					continue
				}
				logger.Info().
					Str("table", t.IcebergTable).
					Int64("extracted", result.Extracted).
					Int64("imported", result.Imported).
					Dur("duration", result.Duration).
					Msg("sync cycle complete")
			}
		}

		runOnce()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				runOnce()
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchTable, "table", "", "iceberg_table to watch (default: all configured tables)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "time between sync cycles")
}
