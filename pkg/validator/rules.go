package validator

import (
	"math"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// Negative fires when a numeric field holds a value below zero.
// Missing values never fire.
func Negative(field string) Rule {
	return Rule{
		Name:   "negative_" + field,
		Fields: []string{field},
		Invalid: func(row model.Row) bool {
			n, ok := row.Get(field).Number()
			return ok && n < 0
		},
	}
}

// IsMissing fires when a field holds the missing marker
func IsMissing(field string) Rule {
	return Rule{
		Name:   "missing_" + field,
		Fields: []string{field},
		Invalid: func(row model.Row) bool {
			return row.Get(field).IsMissing()
		},
	}
}

// After fires when field a is strictly greater than field b.
// If either side is missing the rule does not fire.
func After(a, b string) Rule {
	return Rule{
		Name:   a + "_after_" + b,
		Fields: []string{a, b},
		Invalid: func(row model.Row) bool {
			av, bv := row.Get(a), row.Get(b)
			if av.IsMissing() || bv.IsMissing() {
				return false
			}
			return model.Compare(av, bv) > 0
		},
	}
}

// OrderFields names the columns of an order-like entity
type OrderFields struct {
	Price     string
	Quantity  string
	Amount    string
	OrderDate string
	ShipDate  string
}

// OrderRules is the standard rule set for order-like records
func OrderRules(f OrderFields) []Rule {
	return []Rule{
		Negative(f.Price),
		Negative(f.Quantity),
		Negative(f.Amount),
		After(f.OrderDate, f.ShipDate),
		IsMissing(f.Quantity),
		IsMissing(f.Price),
	}
}

// AbsoluteValue replaces a negative number with its magnitude
func AbsoluteValue(field string) Refinement {
	return func(row model.Row) {
		v := row.Get(field)
		if v.IsMissing() {
			return
		}
		switch v.Kind {
		case model.KindInteger:
			if v.Int < 0 {
				row[field] = model.Integer(-v.Int)
			}
		case model.KindFloat:
			row[field] = model.Float(math.Abs(v.Float))
		}
	}
}

// RecomputeProduct sets target = a × b when both are present
func RecomputeProduct(target, a, b string) Refinement {
	return func(row model.Row) {
		x, okA := row.Get(a).Number()
		y, okB := row.Get(b).Number()
		if !okA || !okB {
			return
		}
		row[target] = model.Float(x * y)
	}
}
