// Package dedup keeps the most recent record per business key.
package dedup

import (
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// maxLoggedKeys caps the per-key duplicate log lines for one batch
const maxLoggedKeys = 50

// Result holds the surviving rows and the rows they replaced.
// Every input row appears in exactly one of the two.
type Result struct {
	Kept       []model.Row
	Superseded []model.Row
}

// Deduplicator reduces batches to one row per key
type Deduplicator struct {
	logger *zap.Logger
}

// New creates a new Deduplicator
func New(logger *zap.Logger) (*Deduplicator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Deduplicator{logger: logger.Named("dedup")}, nil
}

// Deduplicate keeps, for each distinct key, the row with the greatest
// orderBy value. Missing ordering values sort last and equal ordering
// values keep input order, so the earliest of them wins. Kept rows are
// returned in that sorted order.
func (d *Deduplicator) Deduplicate(batch *model.Batch, key []string, orderBy string) (Result, error) {
	required := append(append([]string{}, key...), orderBy)
	if err := model.RequireColumns(batch, "deduplicate", required...); err != nil {
		return Result{}, err
	}

	rows := make([]model.Row, len(batch.Rows))
	copy(rows, batch.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return newer(rows[i].Get(orderBy), rows[j].Get(orderBy))
	})

	res := Result{Kept: make([]model.Row, 0, len(rows))}
	seen := make(map[string]int, len(rows))
	for _, row := range rows {
		k := compositeKey(row, key)
		seen[k]++
		if seen[k] > 1 {
			res.Superseded = append(res.Superseded, row)
			continue
		}
		res.Kept = append(res.Kept, row)
	}

	d.reportDuplicates(batch.Entity, seen)
	d.logger.Info("Deduplicated records",
		zap.String("entity", batch.Entity),
		zap.Strings("key", key),
		zap.String("orderBy", orderBy),
		zap.Int("total", len(rows)),
		zap.Int("kept", len(res.Kept)),
		zap.Int("superseded", len(res.Superseded)))

	return res, nil
}

// newer orders present values descending ahead of missing ones
func newer(a, b model.Value) bool {
	switch {
	case a.IsMissing():
		return false
	case b.IsMissing():
		return true
	default:
		return model.Compare(a, b) > 0
	}
}

// compositeKey joins the key components. Missing components all render
// the same so they group together.
func compositeKey(row model.Row, key []string) string {
	parts := make([]string, len(key))
	for i, k := range key {
		v := row.Get(k)
		if v.IsMissing() {
			parts[i] = "\x00"
			continue
		}
		parts[i] = v.String()
	}
	return strings.Join(parts, "\x1f")
}

func (d *Deduplicator) reportDuplicates(entity string, seen map[string]int) {
	var dups []string
	for k, n := range seen {
		if n > 1 {
			dups = append(dups, k)
		}
	}
	if len(dups) == 0 {
		return
	}
	sort.Strings(dups)

	for i, k := range dups {
		if i == maxLoggedKeys {
			d.logger.Info("Further duplicate keys omitted",
				zap.String("entity", entity),
				zap.Int("omitted", len(dups)-maxLoggedKeys))
			break
		}
		d.logger.Info("Duplicate key",
			zap.String("entity", entity),
			zap.String("key", strings.ReplaceAll(strings.ReplaceAll(k, "\x1f", "|"), "\x00", "<missing>")),
			zap.Int("occurrences", seen[k]))
	}
}
