// Package standardizer replaces coded domain values with canonical labels
// and computes derived fields before validation.
package standardizer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// DefaultFallback is the label given to unmapped values
const DefaultFallback = "Unknown"

// Policy decides what happens to a value with no dictionary entry
type Policy int

const (
	// FallbackLabel replaces unmapped values with the dictionary fallback
	FallbackLabel Policy = iota
	// DropUnmapped removes the row and reports it as dropped
	DropUnmapped
)

// String returns the policy name
func (p Policy) String() string {
	switch p {
	case FallbackLabel:
		return "fallback"
	case DropUnmapped:
		return "drop"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Dictionary maps raw codes of one field to canonical labels
type Dictionary struct {
	Field           string
	Mapping         map[string]string
	CaseInsensitive bool
	Fallback        string // DefaultFallback when empty
	Policy          Policy
}

func (d Dictionary) fallback() string {
	if d.Fallback == "" {
		return DefaultFallback
	}
	return d.Fallback
}

// lookup returns the label for a trimmed raw value
func (d Dictionary) lookup(index map[string]string, raw string) (string, bool) {
	key := strings.TrimSpace(raw)
	if d.CaseInsensitive {
		key = strings.ToLower(key)
	}
	label, ok := index[key]
	return label, ok
}

func (d Dictionary) index() map[string]string {
	idx := make(map[string]string, len(d.Mapping))
	for k, v := range d.Mapping {
		key := strings.TrimSpace(k)
		if d.CaseInsensitive {
			key = strings.ToLower(key)
		}
		idx[key] = v
	}
	return idx
}

// Dropped is a row removed during standardization, with the reason
type Dropped struct {
	Row    model.Row
	Reason string
}

// Result is the output of one standardization pass
type Result struct {
	Batch      *model.Batch
	Dropped    []Dropped
	Operations []model.CleaningOperation
}

// Standardizer applies dictionaries and derive rules to a batch
type Standardizer struct {
	logger *zap.Logger
	now    func() time.Time
}

// New creates a new Standardizer
func New(logger *zap.Logger) (*Standardizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Standardizer{
		logger: logger.Named("standardizer"),
		now:    time.Now,
	}, nil
}

// Apply runs every dictionary, then every derive rule, on a copy of batch.
// A dictionary field or rule input absent from the batch is a SchemaError.
func (s *Standardizer) Apply(batch *model.Batch, dicts []Dictionary, derives []DeriveRule) (Result, error) {
	required := make([]string, 0, len(dicts))
	for _, d := range dicts {
		required = append(required, d.Field)
	}
	for _, r := range derives {
		required = append(required, r.Requires()...)
	}
	if err := model.RequireColumns(batch, "standardize", required...); err != nil {
		return Result{}, err
	}

	out := batch.Clone()
	result := Result{Batch: out}

	for _, d := range dicts {
		dropped, ops := s.applyDictionary(out, d)
		result.Dropped = append(result.Dropped, dropped...)
		result.Operations = append(result.Operations, ops...)
	}

	for _, r := range derives {
		dropped := r.Apply(out)
		if len(dropped) > 0 {
			s.logger.Warn("Derive rule dropped rows",
				zap.String("entity", batch.Entity),
				zap.String("rule", r.Name()),
				zap.Int("count", len(dropped)))
		}
		result.Dropped = append(result.Dropped, dropped...)
	}

	return result, nil
}

func (s *Standardizer) applyDictionary(batch *model.Batch, d Dictionary) ([]Dropped, []model.CleaningOperation) {
	index := d.index()
	fallback := d.fallback()

	var (
		dropped    []Dropped
		operations []model.CleaningOperation
	)
	kept := batch.Rows[:0]
	for i, row := range batch.Rows {
		v := row.Get(d.Field)

		var (
			label string
			ok    bool
		)
		if !v.IsMissing() {
			label, ok = d.lookup(index, v.String())
		}

		switch {
		case ok:
			row[d.Field] = model.Text(label)
		case d.Policy == DropUnmapped:
			dropped = append(dropped, Dropped{
				Row:    row,
				Reason: fmt.Sprintf("unmapped %s %q", d.Field, v.String()),
			})
			continue
		default:
			row[d.Field] = model.Text(fallback)
			operations = append(operations, model.CleaningOperation{
				Entity:            batch.Entity,
				ColumnName:        d.Field,
				RowIndex:          i,
				OriginalValue:     v.String(),
				NewValue:          fallback,
				CleaningOperation: "fallback_label",
				CleaningReason:    "unmapped_value",
				CleanedAt:         s.now(),
			})
		}
		kept = append(kept, row)
	}
	batch.Rows = kept

	if len(operations) > 0 || len(dropped) > 0 {
		s.logger.Info("Standardized field",
			zap.String("entity", batch.Entity),
			zap.String("field", d.Field),
			zap.String("policy", d.Policy.String()),
			zap.Int("fallback", len(operations)),
			zap.Int("dropped", len(dropped)))
	}
	return dropped, operations
}
