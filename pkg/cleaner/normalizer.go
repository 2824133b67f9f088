package cleaner

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// Rules holds the entity-specific normalization rules
type Rules struct {
	// TitleCase lists columns that must exist and are title-cased
	TitleCase []string
}

// Normalizer canonicalizes text cells of a typed batch
type Normalizer struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewNormalizer creates a new Normalizer
func NewNormalizer(logger *zap.Logger) (*Normalizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Normalizer{
		logger: logger.Named("normalizer"),
		now:    time.Now,
	}, nil
}

// Normalize trims declared text columns, turns null tokens into the
// missing marker, drops raw_row and applies title-casing rules.
// Applying it to an already normalized batch changes nothing.
func (n *Normalizer) Normalize(batch *model.Batch, schema model.Schema, rules Rules) (*model.Batch, []model.CleaningOperation, error) {
	if err := model.RequireColumns(batch, "normalize", rules.TitleCase...); err != nil {
		return nil, nil, err
	}

	out := batch.Clone()
	var operations []model.CleaningOperation

	for _, col := range schema.TextColumns() {
		if !out.HasColumn(col) {
			continue
		}

		nulled := 0
		for i, row := range out.Rows {
			v := row.Get(col)
			if v.IsMissing() || v.Kind != model.KindText {
				continue
			}

			trimmed := strings.TrimSpace(v.Str)
			if IsNullToken(trimmed) {
				row[col] = model.Missing(model.KindText)
				nulled++
				operations = append(operations, model.CleaningOperation{
					Entity:            batch.Entity,
					ColumnName:        col,
					RowIndex:          i,
					OriginalValue:     v.Str,
					CleaningOperation: "null_token",
					CleaningReason:    "null_surrogate",
					CleanedAt:         n.now(),
				})
				continue
			}
			if trimmed != v.Str {
				row[col] = model.Text(trimmed)
			}
		}

		if nulled > 0 {
			n.logger.Debug("Normalized null tokens",
				zap.String("entity", batch.Entity),
				zap.String("column", col),
				zap.Int("count", nulled))
		}
	}

	out.DropColumn(model.RawRowColumn)

	caser := cases.Title(language.Und)
	for _, col := range rules.TitleCase {
		for _, row := range out.Rows {
			v := row.Get(col)
			if v.IsMissing() || v.Kind != model.KindText {
				continue
			}
			row[col] = model.Text(caser.String(strings.TrimSpace(v.Str)))
		}
	}

	return out, operations, nil
}
