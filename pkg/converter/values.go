// pkg/converter/values.go
package converter

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// ConvertValue converts a cell to a bind argument for a column of the
// given kind on a driver. Missing values bind as NULL.
func (c *TypeConverter) ConvertValue(driver string, col model.Column, v model.Value) (interface{}, error) {
	if v.IsMissing() {
		return nil, nil
	}

	if col.Name == model.RawRowColumn {
		return c.convertToJSON(v)
	}

	switch col.Kind {
	case model.KindText:
		return c.convertToText(v), nil
	case model.KindBoolean:
		return c.convertToBoolean(driver, v)
	case model.KindInteger, model.KindFloat, model.KindTimestamp:
		if v.Kind != col.Kind && !(col.Kind == model.KindFloat && v.Kind == model.KindInteger) {
			return nil, fmt.Errorf("cannot bind %s value to %s column %s", v.Kind, col.Kind, col.Name)
		}
		if col.Kind == model.KindFloat && v.Kind == model.KindInteger {
			return float64(v.Int), nil
		}
		return v.Interface(), nil
	default:
		return c.convertToText(v), nil
	}
}

// ConvertRow converts a row to bind arguments in column order
func (c *TypeConverter) ConvertRow(driver string, columns []model.Column, row model.Row) ([]interface{}, error) {
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		arg, err := c.ConvertValue(driver, col, row.Get(col.Name))
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return args, nil
}

// convertToText renders any present value as text
func (c *TypeConverter) convertToText(v model.Value) interface{} {
	s := v.String()
	if s == "" && c.config.EmptyStringAsNull {
		return nil
	}
	return s
}

// convertToBoolean binds booleans, as 0/1 on drivers without a boolean type
func (c *TypeConverter) convertToBoolean(driver string, v model.Value) (interface{}, error) {
	if v.Kind != model.KindBoolean {
		return nil, fmt.Errorf("cannot bind %s value to boolean column", v.Kind)
	}
	if baseDriver(driver) == "oracle" {
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	}
	return v.Bool, nil
}

// convertToJSON checks that raw_row holds a JSON document
func (c *TypeConverter) convertToJSON(v model.Value) (interface{}, error) {
	s := strings.TrimSpace(v.String())
	if s == "" {
		return nil, nil
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("failed to bind %s: value is not valid JSON", model.RawRowColumn)
	}
	return s, nil
}
