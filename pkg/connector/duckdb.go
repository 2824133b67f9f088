package connector

import (
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // registers "duckdb"
)

// DuckDBDialect targets an embedded DuckDB file, the default local warehouse
type DuckDBDialect struct{}

func (d *DuckDBDialect) Name() string       { return "duckdb" }
func (d *DuckDBDialect) DriverName() string { return "duckdb" }

func (d *DuckDBDialect) QuoteIdentifier(name string) string { return doubleQuote(name) }

func (d *DuckDBDialect) Placeholder(index int) string { return "?" }

func (d *DuckDBDialect) CreateSchemaQuery(schema string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", d.QuoteIdentifier(schema))
}

func (d *DuckDBDialect) CreateTableQuery(table string, definitions []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(definitions, ", "))
}

func (d *DuckDBDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

func (d *DuckDBDialect) InsertQuery(table string, cols []string) string {
	return insertQuery(d, table, cols)
}
