package standardizer

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// DeriveRule computes fields from already standardized ones. Rules run in
// declaration order, may add columns and may remove rows they cannot use.
type DeriveRule interface {
	Name() string
	Requires() []string
	Apply(batch *model.Batch) []Dropped
}

// SplitKey splits a composite key into a category id (the first Width
// characters) and a residual key (everything after the separator that
// follows the category).
type SplitKey struct {
	Source         string
	CategoryColumn string
	ResidualColumn string
	Width          int
	// DashToUnderscore rewrites '-' to '_' in the category id so it joins
	// against reference ids such as "CO_RF"
	DashToUnderscore bool
}

func (r SplitKey) Name() string       { return "split_key:" + r.Source }
func (r SplitKey) Requires() []string { return []string{r.Source} }

func (r SplitKey) Apply(batch *model.Batch) []Dropped {
	for _, row := range batch.Rows {
		v := row.Get(r.Source)
		if v.IsMissing() {
			row[r.CategoryColumn] = model.Missing(model.KindText)
			row[r.ResidualColumn] = model.Missing(model.KindText)
			continue
		}

		key := []rune(v.String())
		width := r.Width
		if width > len(key) {
			width = len(key)
		}

		category := string(key[:width])
		if r.DashToUnderscore {
			category = strings.ReplaceAll(category, "-", "_")
		}
		row[r.CategoryColumn] = model.Text(category)

		if len(key) > width+1 {
			row[r.ResidualColumn] = model.Text(string(key[width+1:]))
		} else {
			row[r.ResidualColumn] = model.Missing(model.KindText)
		}
	}
	batch.AddColumn(r.CategoryColumn)
	batch.AddColumn(r.ResidualColumn)
	return nil
}

// InferEndDate sets each row's end date to the day before the next start
// date of the same key. The latest row of each key has no end date. Rows
// without a start date get no end date and do not take part in ordering.
type InferEndDate struct {
	Key   string
	Start string
	End   string
}

func (r InferEndDate) Name() string       { return "infer_end_date:" + r.End }
func (r InferEndDate) Requires() []string { return []string{r.Key, r.Start} }

func (r InferEndDate) Apply(batch *model.Batch) []Dropped {
	groups := make(map[string][]model.Row)
	var order []string
	for _, row := range batch.Rows {
		row[r.End] = model.Missing(model.KindTimestamp)

		start := row.Get(r.Start)
		if start.IsMissing() || start.Kind != model.KindTimestamp {
			continue
		}
		k := row.Get(r.Key).String()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], row)
	}

	for _, k := range order {
		rows := groups[k]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Get(r.Start).Time.Before(rows[j].Get(r.Start).Time)
		})
		for i := 0; i < len(rows)-1; i++ {
			next := rows[i+1].Get(r.Start).Time
			rows[i][r.End] = model.Timestamp(next.AddDate(0, 0, -1))
		}
	}

	batch.AddColumn(r.End)
	return nil
}

// TrimIdentifier keeps the last Length characters of an identifier.
// Rows whose identifier is missing or shorter than Length are dropped.
type TrimIdentifier struct {
	Field  string
	Length int
}

func (r TrimIdentifier) Name() string       { return "trim_identifier:" + r.Field }
func (r TrimIdentifier) Requires() []string { return []string{r.Field} }

func (r TrimIdentifier) Apply(batch *model.Batch) []Dropped {
	var dropped []Dropped
	kept := batch.Rows[:0]
	for _, row := range batch.Rows {
		v := row.Get(r.Field)
		id := []rune(v.String())
		if v.IsMissing() || len(id) < r.Length {
			dropped = append(dropped, Dropped{
				Row:    row,
				Reason: fmt.Sprintf("%s %q shorter than %d characters", r.Field, v.String(), r.Length),
			})
			continue
		}
		row[r.Field] = model.Text(string(id[len(id)-r.Length:]))
		kept = append(kept, row)
	}
	batch.Rows = kept
	return dropped
}

// StripCharacters removes every character in Chars from a text field
type StripCharacters struct {
	Field string
	Chars string
}

func (r StripCharacters) Name() string       { return "strip_characters:" + r.Field }
func (r StripCharacters) Requires() []string { return []string{r.Field} }

func (r StripCharacters) Apply(batch *model.Batch) []Dropped {
	for _, row := range batch.Rows {
		v := row.Get(r.Field)
		if v.IsMissing() {
			continue
		}
		stripped := strings.Map(func(c rune) rune {
			if strings.ContainsRune(r.Chars, c) {
				return -1
			}
			return c
		}, v.String())
		row[r.Field] = model.Text(stripped)
	}
	return nil
}

// FillMissing replaces the missing marker with a constant
type FillMissing struct {
	Field string
	Value model.Value
}

func (r FillMissing) Name() string       { return "fill_missing:" + r.Field }
func (r FillMissing) Requires() []string { return []string{r.Field} }

func (r FillMissing) Apply(batch *model.Batch) []Dropped {
	for _, row := range batch.Rows {
		if row.Get(r.Field).IsMissing() {
			row[r.Field] = r.Value
		}
	}
	return nil
}

// FutureDateToMissing clears timestamps that lie after Now
type FutureDateToMissing struct {
	Field string
	Now   func() time.Time
}

func (r FutureDateToMissing) Name() string       { return "future_date_to_missing:" + r.Field }
func (r FutureDateToMissing) Requires() []string { return []string{r.Field} }

func (r FutureDateToMissing) Apply(batch *model.Batch) []Dropped {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	cutoff := now()
	for _, row := range batch.Rows {
		v := row.Get(r.Field)
		if !v.IsMissing() && v.Kind == model.KindTimestamp && v.Time.After(cutoff) {
			row[r.Field] = model.Missing(model.KindTimestamp)
		}
	}
	return nil
}
