// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the configuration reads
const EnvPrefix = "WAREHOUSE"

// Config represents the application configuration
type Config struct {
	Paths      PathsConfig      `mapstructure:"paths"`
	Bronze     SinkConfig       `mapstructure:"bronze"`
	Silver     SinkConfig       `mapstructure:"silver"`
	Quarantine QuarantineConfig `mapstructure:"quarantine"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

// PathsConfig locates the files the pipeline reads and writes
type PathsConfig struct {
	DataDir     string `mapstructure:"data_dir"`     // Root holding source_crm/ and source_erp/
	LedgerFile  string `mapstructure:"ledger_file"`  // CSV ingestion ledger
	CatalogFile string `mapstructure:"catalog_file"` // Optional YAML entity overrides
}

// QuarantineConfig locates the bucket receiving rejected rows
type QuarantineConfig struct {
	URL    string `mapstructure:"url"` // gocloud.dev/blob URL; empty disables quarantine
	Prefix string `mapstructure:"prefix"`
}

// MetricsConfig controls the Prometheus textfile export
type MetricsConfig struct {
	Namespace    string `mapstructure:"namespace"`
	TextfilePath string `mapstructure:"textfile"` // Empty disables the export
}

// LogConfig controls the logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
	File   string `mapstructure:"file"`   // Optional copy of the log
}

// SetDefaults registers every key with its default so that environment
// variables are honoured for all of them
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.data_dir", "datasets")
	v.SetDefault("paths.ledger_file", "metadata/ingestion_log.csv")
	v.SetDefault("paths.catalog_file", "")

	for _, layer := range []string{"bronze", "silver"} {
		v.SetDefault(layer+".driver", "duckdb")
		v.SetDefault(layer+".dsn", "warehouse.duckdb")
		v.SetDefault(layer+".schema", layer)
		v.SetDefault(layer+".batch_size", 1000)
		v.SetDefault(layer+".max_open_conns", 4)
		v.SetDefault(layer+".max_idle_conns", 2)
		v.SetDefault(layer+".conn_max_lifetime", 30*time.Minute)
		v.SetDefault(layer+".conn_max_idle_time", 10*time.Minute)
		v.SetDefault(layer+".statement_timeout", 5*time.Minute)
	}

	v.SetDefault("quarantine.url", "")
	v.SetDefault("quarantine.prefix", "quarantine")

	v.SetDefault("metrics.namespace", "warehouse_ingress")
	v.SetDefault("metrics.textfile", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
}

// BindEnv makes v read WAREHOUSE_SECTION_KEY environment variables
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadEnvFile loads a .env file into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir is required")
	}

	if c.Paths.LedgerFile == "" {
		return errors.New("paths.ledger_file is required")
	}

	if err := c.Bronze.Validate(); err != nil {
		return fmt.Errorf("bronze: %w", err)
	}

	if err := c.Silver.Validate(); err != nil {
		return fmt.Errorf("silver: %w", err)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	return nil
}
