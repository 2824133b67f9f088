package connector

import (
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
)

// MSSQLDialect targets SQL Server
type MSSQLDialect struct{}

func (d *MSSQLDialect) Name() string       { return "sqlserver" }
func (d *MSSQLDialect) DriverName() string { return "sqlserver" }

func (d *MSSQLDialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// Placeholder uses @p1, @p2 which go-mssqldb binds positionally
func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) CreateSchemaQuery(schema string) string {
	return fmt.Sprintf("IF SCHEMA_ID(N'%s') IS NULL EXEC('CREATE SCHEMA %s')",
		escapeLiteral(schema), d.QuoteIdentifier(schema))
}

func (d *MSSQLDialect) CreateTableQuery(table string, definitions []string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		escapeLiteral(table), table, strings.Join(definitions, ", "))
}

func (d *MSSQLDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string) string {
	return insertQuery(d, table, cols)
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
