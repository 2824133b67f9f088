// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// Coercer applies a declared schema to a raw batch
type Coercer struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewCoercer creates a new Coercer instance
func NewCoercer(logger *zap.Logger) (*Coercer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &Coercer{
		logger: logger.Named("coercer"),
		now:    time.Now,
	}, nil
}

// Coerce returns a copy of batch in which every declared column holds a
// value of its declared kind or the missing marker. Declared columns the
// batch does not have are skipped with a warning. Undeclared columns pass
// through unchanged.
func (c *Coercer) Coerce(batch *model.Batch, schema model.Schema) (*model.Batch, []model.CleaningOperation) {
	out := batch.Clone()
	var operations []model.CleaningOperation

	for _, col := range schema.Columns {
		if !out.HasColumn(col.Name) {
			c.logger.Warn("Schema column missing from batch",
				zap.String("entity", batch.Entity),
				zap.String("column", col.Name),
				zap.String("type", col.Kind.String()))
			continue
		}

		failed := 0
		for i, row := range out.Rows {
			original := row.Get(col.Name)
			coerced, ok := coerceValue(original, col.Kind)
			row[col.Name] = coerced
			if ok {
				continue
			}

			failed++
			operations = append(operations, model.CleaningOperation{
				Entity:            batch.Entity,
				ColumnName:        col.Name,
				RowIndex:          i,
				OriginalValue:     original.String(),
				CleaningOperation: "coerce_" + col.Kind.String(),
				CleaningReason:    "unparsable_value",
				CleanedAt:         c.now(),
			})
		}

		if failed > 0 {
			c.logger.Info("Nulled unparsable values",
				zap.String("entity", batch.Entity),
				zap.String("column", col.Name),
				zap.String("type", col.Kind.String()),
				zap.Int("count", failed))
		}
	}

	return out, operations
}
