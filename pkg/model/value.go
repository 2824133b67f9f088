// pkg/model/value.go
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the declared type of a column
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindTimestamp
)

// String returns the canonical name of the kind
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a declared type name to a Kind.
// Accepts the canonical names plus the common aliases used in catalog files.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "string", "varchar":
		return KindText, nil
	case "integer", "int", "int64", "bigint":
		return KindInteger, nil
	case "float", "float64", "double", "numeric", "decimal":
		return KindFloat, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "timestamp", "datetime", "date":
		return KindTimestamp, nil
	default:
		return KindText, fmt.Errorf("unknown column type %q", name)
	}
}

// TimestampLayout is the layout used when a timestamp is rendered as text
const TimestampLayout = "2006-01-02 15:04:05"

// Value is a single nullable cell. A Value with Valid == false is the
// missing marker, which is distinct from an empty string.
type Value struct {
	Kind  Kind
	Valid bool
	Str   string
	Int   int64
	Float float64
	Bool  bool
	Time  time.Time
}

// Missing returns the missing marker for a kind
func Missing(kind Kind) Value {
	return Value{Kind: kind}
}

// Text returns a present text value
func Text(s string) Value {
	return Value{Kind: KindText, Valid: true, Str: s}
}

// Integer returns a present integer value
func Integer(i int64) Value {
	return Value{Kind: KindInteger, Valid: true, Int: i}
}

// Float returns a present floating point value
func Float(f float64) Value {
	return Value{Kind: KindFloat, Valid: true, Float: f}
}

// Boolean returns a present boolean value
func Boolean(b bool) Value {
	return Value{Kind: KindBoolean, Valid: true, Bool: b}
}

// Timestamp returns a present timestamp value
func Timestamp(t time.Time) Value {
	return Value{Kind: KindTimestamp, Valid: true, Time: t}
}

// IsMissing reports whether the value is the missing marker
func (v Value) IsMissing() bool {
	return !v.Valid
}

// String renders the value as text. Missing values render as "".
func (v Value) String() string {
	if !v.Valid {
		return ""
	}
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	case KindTimestamp:
		return v.Time.Format(TimestampLayout)
	default:
		return v.Str
	}
}

// Interface returns the Go value held, or nil when missing.
// Used when binding values to SQL statements.
func (v Value) Interface() interface{} {
	if !v.Valid {
		return nil
	}
	switch v.Kind {
	case KindInteger:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBoolean:
		return v.Bool
	case KindTimestamp:
		return v.Time
	default:
		return v.Str
	}
}

// Number returns the numeric content of an integer or float value
func (v Value) Number() (float64, bool) {
	if !v.Valid {
		return 0, false
	}
	switch v.Kind {
	case KindInteger:
		return float64(v.Int), true
	case KindFloat:
		if math.IsNaN(v.Float) {
			return 0, false
		}
		return v.Float, true
	default:
		return 0, false
	}
}

// Equal reports whether two values hold the same content.
// Two missing values are equal regardless of kind.
func (v Value) Equal(other Value) bool {
	if !v.Valid || !other.Valid {
		return v.Valid == other.Valid
	}
	return Compare(v, other) == 0 && v.Kind == other.Kind
}

// Compare orders two present values. Integers and floats compare
// numerically with each other; other mixed kinds compare by their text
// rendering. Callers handle missing values before calling Compare.
func Compare(a, b Value) int {
	if an, ok := a.Number(); ok {
		if bn, ok := b.Number(); ok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}

	if a.Kind == b.Kind {
		switch a.Kind {
		case KindTimestamp:
			return a.Time.Compare(b.Time)
		case KindBoolean:
			switch {
			case a.Bool == b.Bool:
				return 0
			case !a.Bool:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(a.String(), b.String())
}
