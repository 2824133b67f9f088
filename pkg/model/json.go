package model

import (
	"bytes"
	"math"

	json "github.com/goccy/go-json"
)

// MarshalRow serializes a row as a JSON object whose keys follow columns.
// Missing cells and non-finite floats become null and timestamps use TimestampLayout.
func MarshalRow(columns []string, row Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		v := row.Get(col)
		var content interface{}
		switch {
		case v.IsMissing(), v.Kind == KindFloat && (math.IsNaN(v.Float) || math.IsInf(v.Float, 0)):
			buf.WriteString("null")
			continue
		case v.Kind == KindTimestamp:
			content = v.String()
		default:
			content = v.Interface()
		}
		val, err := json.Marshal(content)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
