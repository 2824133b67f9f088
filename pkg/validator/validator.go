// Package validator partitions conformed records into valid and invalid
// sets according to declared business rules.
package validator

import (
	"errors"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// Rule is a named predicate that returns true when a row is INVALID
type Rule struct {
	Name    string
	Fields  []string // Columns the rule reads; all must exist
	Invalid func(row model.Row) bool
}

// Rejection is an invalid row with the names of every rule it broke
type Rejection struct {
	Row     model.Row
	Reasons []string
}

// Outcome partitions the input. len(Valid)+len(Invalid) equals the input size.
type Outcome struct {
	Valid   []model.Row
	Invalid []Rejection
}

// Total returns the number of rows classified
func (o Outcome) Total() int {
	return len(o.Valid) + len(o.Invalid)
}

// Refinement adjusts rows that passed validation
type Refinement func(row model.Row)

// Validator applies rule sets to batches
type Validator struct {
	logger *zap.Logger
}

// New creates a new Validator
func New(logger *zap.Logger) (*Validator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Validator{logger: logger.Named("validator")}, nil
}

// Validate evaluates every rule against every row. A row is invalid when
// any rule fires; all firing rules are recorded. A rule field absent from
// the batch is a SchemaError.
func (v *Validator) Validate(batch *model.Batch, rules []Rule) (Outcome, error) {
	var fields []string
	for _, r := range rules {
		fields = append(fields, r.Fields...)
	}
	if err := model.RequireColumns(batch, "validate", fields...); err != nil {
		return Outcome{}, err
	}

	out := Outcome{Valid: make([]model.Row, 0, batch.Len())}
	fired := make(map[string]int)
	for _, row := range batch.Rows {
		var reasons []string
		for _, r := range rules {
			if r.Invalid(row) {
				reasons = append(reasons, r.Name)
				fired[r.Name]++
			}
		}
		if len(reasons) > 0 {
			out.Invalid = append(out.Invalid, Rejection{Row: row, Reasons: reasons})
			continue
		}
		out.Valid = append(out.Valid, row)
	}

	if len(out.Invalid) > 0 {
		fieldsByRule := make([]zap.Field, 0, len(fired)+3)
		fieldsByRule = append(fieldsByRule,
			zap.String("entity", batch.Entity),
			zap.Int("invalid", len(out.Invalid)),
			zap.Int("valid", len(out.Valid)))
		for name, n := range fired {
			fieldsByRule = append(fieldsByRule, zap.Int("rule."+name, n))
		}
		v.logger.Warn("Invalid records detected", fieldsByRule...)
	}

	return out, nil
}

// Refine applies refinements in order to every valid row
func Refine(rows []model.Row, refinements ...Refinement) {
	for _, row := range rows {
		for _, fn := range refinements {
			fn(row)
		}
	}
}
