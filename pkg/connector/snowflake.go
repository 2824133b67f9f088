// pkg/connector/snowflake.go
package connector

import (
	"fmt"
	"strings"

	_ "github.com/snowflakedb/gosnowflake" // registers "snowflake"
)

// SnowflakeDialect targets Snowflake. Identifiers are upper-cased before
// quoting so they resolve like unquoted names.
type SnowflakeDialect struct{}

func (d *SnowflakeDialect) Name() string       { return "snowflake" }
func (d *SnowflakeDialect) DriverName() string { return "snowflake" }

func (d *SnowflakeDialect) QuoteIdentifier(name string) string {
	return doubleQuote(strings.ToUpper(name))
}

func (d *SnowflakeDialect) Placeholder(index int) string { return "?" }

func (d *SnowflakeDialect) CreateSchemaQuery(schema string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", d.QuoteIdentifier(schema))
}

func (d *SnowflakeDialect) CreateTableQuery(table string, definitions []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(definitions, ", "))
}

func (d *SnowflakeDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

func (d *SnowflakeDialect) InsertQuery(table string, cols []string) string {
	return insertQuery(d, table, cols)
}
