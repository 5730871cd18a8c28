package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gear6io/syncbridge/internal/config"
	"github.com/gear6io/syncbridge/internal/icebergfmt"
	"github.com/gear6io/syncbridge/internal/sqldriver"
	"github.com/gear6io/syncbridge/internal/syncengine"
)

// loadConfig reads the config file named by --config, or falls back to the
// conventional search path / defaults if the flag is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromFile(path)
}

// newSourceDriver builds the source driver for conn's dialect.
func newSourceDriver(conn config.Connection) (sqldriver.SourceDriver, error) {
	switch conn.Dialect {
	case "sqlite":
		return sqldriver.NewSQLiteSourceDriver(conn.DSN)
	case "postgres":
		return sqldriver.NewPostgresSourceDriver(conn.DSN)
	default:
		return nil, fmt.Errorf("unsupported source dialect %q", conn.Dialect)
	}
}

// newTargetDriver builds the target driver for conn's dialect.
func newTargetDriver(conn config.Connection) (sqldriver.TargetDriver, error) {
	switch conn.Dialect {
	case "sqlite":
		return sqldriver.NewSQLiteTargetDriver(conn.DSN)
	case "postgres":
		return sqldriver.NewPostgresTargetDriver(conn.DSN)
	default:
		return nil, fmt.Errorf("unsupported target dialect %q", conn.Dialect)
	}
}

// newDetector builds the change detector a table config asks for.
func newDetector(t config.TableConfig) syncengine.ChangeDetector {
	if t.ChangeDetector == "composite" {
		return &syncengine.CompositeChangeDetector{
			WatermarkColumn: t.WatermarkColumn,
			IDColumn:        t.IDColumn,
		}
	}
	return syncengine.HighWatermarkDetector{WatermarkColumn: t.WatermarkColumn}
}

// buildCoordinator wires one table config's source/target drivers and
// Iceberg catalog/writer/watermark store into a Coordinator, returning the
// Options Sync needs alongside it.
func buildCoordinator(cfg *config.Config, t config.TableConfig, logger zerolog.Logger) (*syncengine.Coordinator, syncengine.Options, error) {
	source, err := newSourceDriver(cfg.Source)
	if err != nil {
		return nil, syncengine.Options{}, err
	}
	target, err := newTargetDriver(cfg.Target)
	if err != nil {
		return nil, syncengine.Options{}, err
	}

	catalog := icebergfmt.NewCatalog(cfg.Warehouse)
	writer := icebergfmt.NewWriter(catalog, icebergfmt.DefaultWriteOptions())

	wm, err := syncengine.NewWatermarkStore(cfg.Watermark)
	if err != nil {
		return nil, syncengine.Options{}, err
	}

	coord := syncengine.NewCoordinator(source, target, catalog, writer, wm, newDetector(t), logger)

	opts := syncengine.Options{
		SourceTable:        t.SourceTable,
		IcebergTable:       t.IcebergTable,
		TargetTable:        t.TargetTable,
		PrimaryKeyColumn:   t.PrimaryKeyColumn,
		WatermarkColumn:    t.WatermarkColumn,
		WarehousePath:      cfg.Warehouse,
		WatermarkDirectory: cfg.Watermark,
		MaxDeltaRows:       t.MaxDeltaRows,
	}
	return coord, opts, nil
}

// findTables returns a one-element slice holding the TableConfig named by
// icebergTable, or all tables if icebergTable is empty.
func findTables(cfg *config.Config, icebergTable string) ([]config.TableConfig, error) {
	if icebergTable == "" {
		return cfg.Tables, nil
	}
	for _, t := range cfg.Tables {
		if t.IcebergTable == icebergTable {
			return []config.TableConfig{t}, nil
		}
	}
	return nil, fmt.Errorf("no table configured with iceberg_table %q", icebergTable)
}
