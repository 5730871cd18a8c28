package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gear6io/syncbridge/pkg/errors"
)

// Config is the top-level syncbridge configuration: where the warehouse and
// watermark files live, the source/target database connections, the set of
// tables to sync, and the ambient logging/metrics surface.
type Config struct {
	Version   string        `yaml:"version"`
	Warehouse string        `yaml:"warehouse"`
	Watermark string        `yaml:"watermark_dir"`
	Source    Connection    `yaml:"source"`
	Target    Connection    `yaml:"target"`
	Tables    []TableConfig `yaml:"tables"`
	Retry     RetryConfig   `yaml:"retry"`
	Logging   LogConfig     `yaml:"logging"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// Connection names a database dialect and its connection string. Dialect is
// one of "sqlite" or "postgres"; DSN is a sqlite file path or a Postgres
// connection URL, handed verbatim to internal/sqldriver's dialect factories.
type Connection struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
}

// TableConfig is one (source table, Iceberg table, target table) triple and
// the knobs the coordinator needs to sync it: primary key columns, the
// watermark column for change detection, and an optional delta size guard.
type TableConfig struct {
	SourceTable      string   `yaml:"source_table"`
	IcebergTable     string   `yaml:"iceberg_table"`
	TargetTable      string   `yaml:"target_table"`
	PrimaryKeyColumn []string `yaml:"primary_key"`
	WatermarkColumn  string   `yaml:"watermark_column"`
	MaxDeltaRows     int      `yaml:"max_delta_rows,omitempty"`
	// ChangeDetector selects the detection strategy: "watermark" (default)
	// or "composite" (watermark plus a monotonic tie-breaker id column).
	ChangeDetector string `yaml:"change_detector,omitempty"`
	IDColumn       string `yaml:"id_column,omitempty"`
}

// RetryConfig mirrors syncengine.RetryConfig's fields as read from file.
// These values are not passed to the coordinator: every Coordinator built by
// the CLI uses syncengine.DefaultRetryConfig.
type RetryConfig struct {
	MaxAttempts   int     `yaml:"max_attempts"`
	BaseDelaySecs float64 `yaml:"base_delay_seconds"`
	MaxDelaySecs  float64 `yaml:"max_delay_seconds"`
	BackoffFactor float64 `yaml:"backoff_factor"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"`
	FilePath   string `yaml:"file_path,omitempty"`
	Cleanup    bool   `yaml:"cleanup,omitempty"`
	MaxSize    int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAge     int    `yaml:"max_age_days,omitempty"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// DefaultConfig returns a minimal, locally-runnable configuration: a SQLite
// source and target and no tables, meant to be filled in or overridden.
func DefaultConfig() *Config {
	return &Config{
		Version:   "0.1.0",
		Warehouse: "./warehouse",
		Watermark: "./watermarks",
		Source:    Connection{Dialect: "sqlite", DSN: "./source.db"},
		Target:    Connection{Dialect: "sqlite", DSN: "./target.db"},
		Retry: RetryConfig{
			MaxAttempts:   3,
			BaseDelaySecs: 1,
			MaxDelaySecs:  30,
			BackoffFactor: 2.0,
		},
		Logging: LogConfig{
			Level:   "info",
			Console: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: "0.0.0.0",
			Port:    9847,
		},
	}
}

// Load finds a config file in the conventional search path and loads it,
// falling back to DefaultConfig if none is found.
func Load() (*Config, error) {
	if path := findConfigFile(); path != "" {
		return LoadFromFile(path)
	}
	return DefaultConfig(), nil
}

// LoadFromFile reads and parses the YAML config at path, overlaying it on
// top of DefaultConfig so unset fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(ErrConfigFileReadFailed, "failed to read config file", err).
			AddContext("path", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(ErrConfigFileParseFailed, "failed to parse config file", err).
			AddContext("path", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.New(ErrConfigFileParseFailed, "failed to marshal config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.New(ErrConfigFileReadFailed, "failed to write config file", err).
			AddContext("path", path)
	}
	return nil
}

// findConfigFile searches the current directory, then $HOME/.syncbridge,
// then /etc/syncbridge, for syncbridge.yml.
func findConfigFile() string {
	if _, err := os.Stat("syncbridge.yml"); err == nil {
		return "syncbridge.yml"
	}
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".syncbridge", "syncbridge.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if _, err := os.Stat("/etc/syncbridge/syncbridge.yml"); err == nil {
		return "/etc/syncbridge/syncbridge.yml"
	}
	return ""
}

// Validate checks structural requirements Load cannot otherwise catch:
// every table names its triple and primary key, dialects are recognized,
// and no two tables collide on the same Iceberg table name.
func (c *Config) Validate() error {
	if c.Warehouse == "" {
		return errors.New(ErrConfigValidationFailed, "warehouse path is required", nil)
	}
	if c.Watermark == "" {
		return errors.New(ErrConfigValidationFailed, "watermark_dir is required", nil)
	}
	if err := c.Source.validate("source"); err != nil {
		return err
	}
	if err := c.Target.validate("target"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if err := t.validate(); err != nil {
			return err
		}
		if seen[t.IcebergTable] {
			return errors.New(ErrConfigValidationFailed, "duplicate iceberg_table in tables list", nil).
				AddContext("iceberg_table", t.IcebergTable)
		}
		seen[t.IcebergTable] = true
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return errors.New(ErrConfigValidationFailed, "invalid metrics port", nil).
				AddContext("port", fmt.Sprintf("%d", c.Metrics.Port))
		}
	}
	return nil
}

func (c Connection) validate(role string) error {
	switch c.Dialect {
	case "sqlite", "postgres":
	default:
		return errors.New(ErrConfigValidationFailed, "unsupported dialect", nil).
			AddContext("role", role).AddContext("dialect", c.Dialect)
	}
	if c.DSN == "" {
		return errors.New(ErrConfigValidationFailed, "dsn is required", nil).AddContext("role", role)
	}
	return nil
}

func (t TableConfig) validate() error {
	if t.SourceTable == "" || t.IcebergTable == "" || t.TargetTable == "" {
		return errors.New(ErrConfigValidationFailed, "source_table, iceberg_table and target_table are all required", nil).
			AddContext("iceberg_table", t.IcebergTable)
	}
	if len(t.PrimaryKeyColumn) == 0 {
		return errors.New(ErrConfigValidationFailed, "primary_key must name at least one column", nil).
			AddContext("iceberg_table", t.IcebergTable)
	}
	if t.WatermarkColumn == "" {
		return errors.New(ErrConfigValidationFailed, "watermark_column is required", nil).
			AddContext("iceberg_table", t.IcebergTable)
	}
	switch t.ChangeDetector {
	case "", "watermark":
	case "composite":
		if t.IDColumn == "" {
			return errors.New(ErrConfigValidationFailed, "id_column is required when change_detector is composite", nil).
				AddContext("iceberg_table", t.IcebergTable)
		}
	default:
		return errors.New(ErrConfigValidationFailed, "unknown change_detector", nil).
			AddContext("iceberg_table", t.IcebergTable).AddContext("change_detector", t.ChangeDetector)
	}
	return nil
}
