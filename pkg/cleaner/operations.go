// pkg/cleaner/operations.go
package cleaner

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// nullTokens are the text surrogates that mean "no value"
var nullTokens = map[string]bool{
	"":     true,
	"NULL": true,
	"null": true,
	"None": true,
	"none": true,
	"nan":  true,
	"NaN":  true,
}

// IsNullToken reports whether a trimmed string is a null surrogate
func IsNullToken(s string) bool {
	return nullTokens[s]
}

// timeFormats is the general date/time grammar, tried in order
var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"01-02-2006",
	"2006/01/02",
	"02-Jan-2006",
	"Jan 2, 2006",
	"20060102",
}

// toInt parses a base-10 integer. A float with no fractional part is
// accepted ("12.0"), anything else is an error.
func toInt(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, errors.New("empty string")
	}

	if i, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return i, nil
	}

	f, err := toFloat(cleaned)
	if err != nil {
		return 0, err
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return 0, fmt.Errorf("cannot parse '%s' as integer", cleaned)
	}
	return int64(f), nil
}

// toFloat parses a finite decimal number
func toFloat(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, errors.New("empty string")
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cannot parse '%s' as a finite number", cleaned)
	}
	return f, nil
}

// toBool parses the boolean vocabulary
func toBool(s string) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	default:
		return false, fmt.Errorf("cannot parse '%s' as boolean", s)
	}
}

// toTime parses a timestamp using the general date/time grammar
func toTime(s string) (time.Time, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return time.Time{}, errors.New("empty string")
	}

	for _, format := range timeFormats {
		if t, err := time.Parse(format, cleaned); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse time from '%s'", cleaned)
}

// coerceValue converts v to kind. The second result is false when a
// present value could not be converted and became missing.
func coerceValue(v model.Value, kind model.Kind) (model.Value, bool) {
	if v.IsMissing() {
		return model.Missing(kind), true
	}
	if v.Kind == kind {
		return v, true
	}

	s := v.String()
	switch kind {
	case model.KindText:
		return model.Text(s), true
	case model.KindInteger:
		i, err := toInt(s)
		if err != nil {
			return model.Missing(kind), false
		}
		return model.Integer(i), true
	case model.KindFloat:
		f, err := toFloat(s)
		if err != nil {
			return model.Missing(kind), false
		}
		return model.Float(f), true
	case model.KindBoolean:
		b, err := toBool(s)
		if err != nil {
			return model.Missing(kind), false
		}
		return model.Boolean(b), true
	case model.KindTimestamp:
		t, err := toTime(s)
		if err != nil {
			return model.Missing(kind), false
		}
		return model.Timestamp(t), true
	default:
		return model.Missing(kind), false
	}
}
