// pkg/connector/dialect.go
package connector

import (
	"fmt"
	"strings"
)

// Dialect abstracts the SQL differences between warehouse databases
type Dialect interface {
	// Name is the key used for column type mapping
	Name() string
	// DriverName is the database/sql driver to open
	DriverName() string

	QuoteIdentifier(name string) string
	Placeholder(index int) string // Returns ?, $1, @p1, :1

	// Query generation. Table names arrive already qualified and quoted.
	CreateSchemaQuery(schema string) string // Empty when schemas are not created by the loader
	CreateTableQuery(table string, definitions []string) string
	DropTableQuery(table string) string
	InsertQuery(table string, cols []string) string
}

// GetDialect returns the Dialect implementation for a driver name
func GetDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "pgx", "postgres":
		return &PostgresDialect{}, nil
	case "mysql":
		return &MySQLDialect{}, nil
	case "sqlserver", "mssql":
		return &MSSQLDialect{}, nil
	case "oracle":
		return &OracleDialect{}, nil
	case "snowflake":
		return &SnowflakeDialect{}, nil
	case "duckdb":
		return &DuckDBDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// Ensure interface implementation
var (
	_ Dialect = (*PostgresDialect)(nil)
	_ Dialect = (*MySQLDialect)(nil)
	_ Dialect = (*MSSQLDialect)(nil)
	_ Dialect = (*OracleDialect)(nil)
	_ Dialect = (*SnowflakeDialect)(nil)
	_ Dialect = (*DuckDBDialect)(nil)
)

// QualifiedName quotes a table and prefixes it with its schema, if any
func QualifiedName(d Dialect, schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// GeneratePlaceholders creates a comma-separated list of count placeholders
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// quoteAll quotes each column name with the dialect's quoting
func quoteAll(d Dialect, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

// doubleQuote is the ANSI identifier quoting shared by most dialects
func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// insertQuery is the portable single-row INSERT
func insertQuery(d Dialect, table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, quoteAll(d, cols), GeneratePlaceholders(len(cols), d.Placeholder))
}
