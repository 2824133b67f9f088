// Package capture reads raw tabular extracts into record batches without
// interpreting any cell. It is the bronze layer's only view of a file.
package capture

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// NotFoundError is returned when the input file does not exist
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("input file not found: %s", e.Path)
}

// Descriptor tells the capture stage how to shape one entity's extract
type Descriptor struct {
	Entity string

	// ColumnMap copies a source column (value) into a warehouse column (key)
	ColumnMap map[string]string

	// OutputColumns, when set, projects the batch onto these columns
	OutputColumns []string

	// LoadedAtColumn, when set, receives the capture timestamp
	LoadedAtColumn string
}

// Capturer reads delimited files into raw record batches
type Capturer struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewCapturer creates a new Capturer
func NewCapturer(logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capturer{
		logger: logger.Named("capture"),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for the loaded-at stamp
func (c *Capturer) WithClock(now func() time.Time) *Capturer {
	c.now = now
	return c
}

// CaptureFile reads the file at path. Files ending in .gz are decompressed.
func (c *Capturer) CaptureFile(ctx context.Context, path string, desc Descriptor) (*model.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	batch, err := c.Capture(ctx, r, desc)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %s: %w", path, err)
	}

	c.logger.Info("Captured file",
		zap.String("entity", desc.Entity),
		zap.String("path", path),
		zap.Int("rows", batch.Len()),
		zap.Int("columns", len(batch.Columns)))
	return batch, nil
}

// Capture reads a header row and every data row from r as text
func (c *Capturer) Capture(ctx context.Context, r io.Reader, desc Descriptor) (*model.Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("input has no header row")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, err := NormalizeHeaders(head)
	if err != nil {
		return nil, err
	}

	batch := model.NewBatch(desc.Entity, columns)
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line++

		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		if len(rec) > len(columns) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d", line, len(rec), len(columns))
		}

		row := make(model.Row, len(columns)+1)
		for i, col := range columns {
			if i < len(rec) && rec[i] != "" {
				row[col] = model.Text(rec[i])
			} else {
				row[col] = model.Missing(model.KindText)
			}
		}

		raw, err := rawRow(columns, row)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize line %d: %w", line, err)
		}
		row[model.RawRowColumn] = model.Text(raw)
		batch.Append(row)
	}
	batch.AddColumn(model.RawRowColumn)

	c.applyDescriptor(batch, desc)

	if len(desc.OutputColumns) > 0 {
		batch = batch.Project(desc.OutputColumns)
	}
	return batch, nil
}

// applyDescriptor copies mapped columns and stamps the loaded-at column
func (c *Capturer) applyDescriptor(batch *model.Batch, desc Descriptor) {
	for _, dst := range sortedKeys(desc.ColumnMap) {
		src := desc.ColumnMap[dst]
		if !batch.HasColumn(src) {
			c.logger.Warn("Mapped source column not present",
				zap.String("entity", desc.Entity),
				zap.String("column", dst),
				zap.String("source", src))
		}
		for _, row := range batch.Rows {
			row[dst] = row.Get(src)
		}
		batch.AddColumn(dst)
	}

	if desc.LoadedAtColumn != "" {
		stamp := model.Timestamp(c.now())
		for _, row := range batch.Rows {
			row[desc.LoadedAtColumn] = stamp
		}
		batch.AddColumn(desc.LoadedAtColumn)
	}
}

// NormalizeHeaders trims and lower-cases every header. Two headers that
// normalize to the same name are rejected.
func NormalizeHeaders(head []string) ([]string, error) {
	columns := make([]string, len(head))
	seen := make(map[string]bool, len(head))
	for i, h := range head {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q after header normalization", name)
		}
		seen[name] = true
		columns[i] = name
	}
	return columns, nil
}

// rawRow serializes the row as a JSON object in column order, with null
// for missing cells
func rawRow(columns []string, row model.Row) (string, error) {
	b, err := model.MarshalRow(columns, row)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
