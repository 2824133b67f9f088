// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// SupportedDrivers lists the database/sql driver names a sink may use
var SupportedDrivers = []string{"pgx", "postgres", "mysql", "sqlserver", "mssql", "oracle", "snowflake", "duckdb"}

// SinkConfig describes one warehouse layer's database
type SinkConfig struct {
	Driver    string           `mapstructure:"driver"`
	DSN       string           `mapstructure:"dsn"`    // Used as is when set
	Schema    string           `mapstructure:"schema"` // Target schema; empty uses the connection default
	BatchSize int              `mapstructure:"batch_size"`
	Postgres  *PostgresConfig  `mapstructure:"postgres"`
	Snowflake *SnowflakeConfig `mapstructure:"snowflake"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// Statement timeout
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// SnowflakeConfig holds Snowflake connection parameters
type SnowflakeConfig struct {
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Account       string `mapstructure:"account"`
	Warehouse     string `mapstructure:"warehouse"`
	Database      string `mapstructure:"database"`
	Role          string `mapstructure:"role"`
	Authenticator string `mapstructure:"authenticator"`
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Validate checks the driver and that a DSN can be built
func (s *SinkConfig) Validate() error {
	if !isSupportedDriver(s.Driver) {
		return fmt.Errorf("unsupported driver %q (supported: %s)", s.Driver, strings.Join(SupportedDrivers, ", "))
	}

	if s.BatchSize < 0 {
		return errors.New("batch size cannot be negative")
	}

	if _, err := s.DataSourceName(); err != nil {
		return err
	}
	return nil
}

// DataSourceName returns the DSN passed to sql.Open
func (s *SinkConfig) DataSourceName() (string, error) {
	if s.DSN != "" {
		return s.DSN, nil
	}

	switch strings.ToLower(s.Driver) {
	case "pgx", "postgres":
		if s.Postgres == nil {
			return "", errors.New("postgres settings or a dsn are required")
		}
		return s.Postgres.ConnectionString(s.StatementTimeout), nil
	case "snowflake":
		if s.Snowflake == nil {
			return "", errors.New("snowflake settings or a dsn are required")
		}
		return s.Snowflake.ConnectionString(s.StatementTimeout)
	case "duckdb":
		// In-memory database
		return "", nil
	default:
		return "", fmt.Errorf("a dsn is required for driver %s", s.Driver)
	}
}

// AuthType converts the configured authenticator name
func (c *SnowflakeConfig) AuthType() gosnowflake.AuthType {
	switch strings.ToLower(c.Authenticator) {
	case "oauth":
		return gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser
	case "username_password_mfa":
		return gosnowflake.AuthTypeUsernamePasswordMFA
	case "jwt":
		return gosnowflake.AuthTypeJwt
	case "token":
		return gosnowflake.AuthTypeTokenAccessor
	case "okta":
		return gosnowflake.AuthTypeOkta
	default:
		return gosnowflake.AuthTypeSnowflake
	}
}

// ConnectionString returns a formatted Snowflake DSN
func (c *SnowflakeConfig) ConnectionString(statementTimeout time.Duration) (string, error) {
	if c.Account == "" || c.User == "" {
		return "", errors.New("snowflake account and user are required")
	}

	sfConfig := &gosnowflake.Config{
		Account:       c.Account,
		User:          c.User,
		Password:      c.Password,
		Database:      c.Database,
		Warehouse:     c.Warehouse,
		Role:          c.Role,
		Authenticator: c.AuthType(),
	}
	if statementTimeout > 0 {
		timeout := fmt.Sprintf("%d", int(statementTimeout.Seconds()))
		sfConfig.Params = map[string]*string{"STATEMENT_TIMEOUT_IN_SECONDS": &timeout}
	}

	dsn, err := gosnowflake.DSN(sfConfig)
	if err != nil {
		return "", fmt.Errorf("failed to build Snowflake DSN: %w", err)
	}
	return dsn, nil
}

// ConnectionString returns a formatted PostgreSQL connection string
func (c *PostgresConfig) ConnectionString(statementTimeout time.Duration) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		port,
		c.User,
		c.Password,
		c.Database,
		sslMode,
	)
	if statementTimeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", statementTimeout.Milliseconds())
	}
	return dsn
}

func isSupportedDriver(driver string) bool {
	for _, d := range SupportedDrivers {
		if strings.EqualFold(d, driver) {
			return true
		}
	}
	return false
}
