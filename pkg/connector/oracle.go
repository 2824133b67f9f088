package connector

import (
	"fmt"
	"strings"

	_ "github.com/sijms/go-ora/v2" // registers "oracle"
)

// OracleDialect targets Oracle through go-ora. Oracle schemas are users,
// so the loader never creates them. DDL runs inside PL/SQL blocks that
// swallow "already exists" (ORA-00955) and "does not exist" (ORA-00942).
type OracleDialect struct{}

func (d *OracleDialect) Name() string       { return "oracle" }
func (d *OracleDialect) DriverName() string { return "oracle" }

func (d *OracleDialect) QuoteIdentifier(name string) string {
	return doubleQuote(strings.ToUpper(name))
}

func (d *OracleDialect) Placeholder(index int) string {
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) CreateSchemaQuery(schema string) string { return "" }

func (d *OracleDialect) CreateTableQuery(table string, definitions []string) string {
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(definitions, ", "))
	return plsqlIgnoring(ddl, -955)
}

func (d *OracleDialect) DropTableQuery(table string) string {
	return plsqlIgnoring(fmt.Sprintf("DROP TABLE %s PURGE", table), -942)
}

func (d *OracleDialect) InsertQuery(table string, cols []string) string {
	return insertQuery(d, table, cols)
}

func plsqlIgnoring(ddl string, sqlcode int) string {
	return fmt.Sprintf("BEGIN EXECUTE IMMEDIATE '%s'; EXCEPTION WHEN OTHERS THEN IF SQLCODE != %d THEN RAISE; END IF; END;",
		escapeLiteral(ddl), sqlcode)
}
