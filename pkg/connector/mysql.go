package connector

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // registers "mysql"
)

// MySQLDialect targets MySQL and MariaDB. A MySQL schema is a database,
// which the loader does not create.
type MySQLDialect struct{}

func (d *MySQLDialect) Name() string       { return "mysql" }
func (d *MySQLDialect) DriverName() string { return "mysql" }

func (d *MySQLDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MySQLDialect) Placeholder(index int) string { return "?" }

func (d *MySQLDialect) CreateSchemaQuery(schema string) string { return "" }

func (d *MySQLDialect) CreateTableQuery(table string, definitions []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(definitions, ", "))
}

func (d *MySQLDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

func (d *MySQLDialect) InsertQuery(table string, cols []string) string {
	return insertQuery(d, table, cols)
}
