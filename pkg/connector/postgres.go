// pkg/connector/postgres.go
package connector

import (
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v4/stdlib" // registers "pgx"
	"github.com/lib/pq"
)

// PostgresDialect targets PostgreSQL through the pgx stdlib driver
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

// QuoteIdentifier lower-cases so unquoted queries still find the column
func (d *PostgresDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(strings.ToLower(name))
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) CreateSchemaQuery(schema string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", d.QuoteIdentifier(schema))
}

func (d *PostgresDialect) CreateTableQuery(table string, definitions []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(definitions, ", "))
}

func (d *PostgresDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

func (d *PostgresDialect) InsertQuery(table string, cols []string) string {
	return insertQuery(d, table, cols)
}
