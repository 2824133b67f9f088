// pkg/converter/converter.go
package converter

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// TypeConverter maps column kinds to SQL column types and values to
// driver bind arguments
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for type conversion
type TypeConverterConfig struct {
	// Maximum length of bounded text columns on drivers that need one
	MaxVarcharLength int
	// Store raw_row in the driver's JSON type instead of text
	RawRowAsJSON bool
	// Bind empty strings as NULL
	EmptyStringAsNull bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		MaxVarcharLength:  4000,
		RawRowAsJSON:      true,
		EmptyStringAsNull: false,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) (*TypeConverter, error) {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) (*TypeConverter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.MaxVarcharLength <= 0 {
		config.MaxVarcharLength = DefaultConfig().MaxVarcharLength
	}
	return &TypeConverter{
		logger: logger.Named("converter"),
		config: config,
	}, nil
}

// ColumnsForBatch resolves the kind of every batch column. Declared
// columns take the schema's kind; derived columns take the kind of their
// first present value; anything else is text.
func ColumnsForBatch(batch *model.Batch, schema *model.Schema) []model.Column {
	cols := make([]model.Column, 0, len(batch.Columns))
	for _, name := range batch.Columns {
		if schema != nil {
			if declared := schema.GetColumnByName(name); declared != nil {
				cols = append(cols, model.Col(name, declared.Kind))
				continue
			}
		}

		kind := model.KindText
		for _, row := range batch.Rows {
			if v := row.Get(name); !v.IsMissing() {
				kind = v.Kind
				break
			}
		}
		cols = append(cols, model.Col(name, kind))
	}
	return cols
}

// GenerateColumnDefinitions creates column definitions for a CREATE TABLE
// statement on the given driver. quote renders an identifier.
func (c *TypeConverter) GenerateColumnDefinitions(driver string, columns []model.Column, quote func(string) string) ([]string, error) {
	definitions := make([]string, 0, len(columns))

	for _, col := range columns {
		sqlType, err := c.SQLType(driver, col)
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, fmt.Sprintf("%s %s", quote(col.Name), sqlType))
	}

	return definitions, nil
}
