// pkg/converter/mapping.go
package converter

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// TypeMap names the column type a driver uses for each kind
type TypeMap struct {
	Text      string
	Integer   string
	Float     string
	Boolean   string
	Timestamp string
	JSON      string
	// BoundedText is a printf layout taking the maximum length, used by
	// drivers whose unbounded text type cannot be compared or indexed
	BoundedText string
}

var typeMaps = map[string]TypeMap{
	"postgres": {
		Text: "TEXT", Integer: "BIGINT", Float: "DOUBLE PRECISION",
		Boolean: "BOOLEAN", Timestamp: "TIMESTAMP", JSON: "JSONB",
	},
	"mysql": {
		Text: "TEXT", Integer: "BIGINT", Float: "DOUBLE",
		Boolean: "BOOLEAN", Timestamp: "DATETIME(6)", JSON: "JSON",
	},
	"sqlserver": {
		Text: "NVARCHAR(MAX)", Integer: "BIGINT", Float: "FLOAT",
		Boolean: "BIT", Timestamp: "DATETIME2", JSON: "NVARCHAR(MAX)",
	},
	"oracle": {
		Text: "CLOB", Integer: "NUMBER(19)", Float: "BINARY_DOUBLE",
		Boolean: "NUMBER(1)", Timestamp: "TIMESTAMP", JSON: "CLOB",
		BoundedText: "VARCHAR2(%d)",
	},
	"snowflake": {
		Text: "VARCHAR", Integer: "NUMBER(38,0)", Float: "FLOAT",
		Boolean: "BOOLEAN", Timestamp: "TIMESTAMP_NTZ", JSON: "VARCHAR",
	},
	"duckdb": {
		Text: "VARCHAR", Integer: "BIGINT", Float: "DOUBLE",
		Boolean: "BOOLEAN", Timestamp: "TIMESTAMP", JSON: "JSON",
	},
}

// driverAliases maps database/sql driver names onto a type map
var driverAliases = map[string]string{
	"pgx":      "postgres",
	"postgres": "postgres",
	"mssql":    "sqlserver",
}

// baseDriver resolves aliases to the key of a type map
func baseDriver(driver string) string {
	d := strings.ToLower(strings.TrimSpace(driver))
	if alias, ok := driverAliases[d]; ok {
		return alias
	}
	return d
}

// TypeMapFor returns the type map of a driver
func TypeMapFor(driver string) (TypeMap, error) {
	tm, ok := typeMaps[baseDriver(driver)]
	if !ok {
		return TypeMap{}, fmt.Errorf("unsupported driver: %s", driver)
	}
	return tm, nil
}

// SQLType returns the column type for a column on a driver
func (c *TypeConverter) SQLType(driver string, col model.Column) (string, error) {
	tm, err := TypeMapFor(driver)
	if err != nil {
		return "", err
	}

	if col.Name == model.RawRowColumn && c.config.RawRowAsJSON {
		return tm.JSON, nil
	}

	switch col.Kind {
	case model.KindInteger:
		return tm.Integer, nil
	case model.KindFloat:
		return tm.Float, nil
	case model.KindBoolean:
		return tm.Boolean, nil
	case model.KindTimestamp:
		return tm.Timestamp, nil
	case model.KindText:
		return c.handleTextType(tm, col), nil
	default:
		c.logger.Warn("Unknown column kind encountered",
			zap.String("column", col.Name),
			zap.String("kind", col.Kind.String()))
		return tm.Text, nil
	}
}

// handleTextType bounds text columns on drivers that declare a bounded
// layout. raw_row always stays unbounded.
func (c *TypeConverter) handleTextType(tm TypeMap, col model.Column) string {
	if tm.BoundedText == "" || col.Name == model.RawRowColumn {
		return tm.Text
	}
	return fmt.Sprintf(tm.BoundedText, c.config.MaxVarcharLength)
}
