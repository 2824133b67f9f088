// Package quarantine stores rows that did not reach the silver layer as
// Parquet files in an object bucket, one file per run, entity and stage.
package quarantine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

// Stage names the pipeline step that set a row aside
type Stage string

const (
	StageInvalid    Stage = "invalid"
	StageDropped    Stage = "dropped"
	StageSuperseded Stage = "superseded"
)

// Record is one quarantined row as stored in Parquet
type Record struct {
	RunID           string `parquet:"run_id"`
	Entity          string `parquet:"entity"`
	Stage           string `parquet:"stage"`
	Reasons         string `parquet:"reasons"`
	Payload         string `parquet:"payload"`
	QuarantinedAtMs int64  `parquet:"quarantined_at_ms"`
}

// Entry is a row handed to the writer with the reasons it was set aside
type Entry struct {
	Row     model.Row
	Reasons []string
}

// Writer serializes entries and uploads them to a bucket
type Writer struct {
	bucket *blob.Bucket
	prefix string
	owned  bool
	logger *zap.Logger
	now    func() time.Time
}

// Open opens the bucket at url (file://, s3://, gs:// or mem://) and
// returns a Writer that closes it on Close
func Open(ctx context.Context, url, prefix string, logger *zap.Logger) (*Writer, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open quarantine bucket %s: %w", url, err)
	}
	w, err := NewWriter(bucket, prefix, logger)
	if err != nil {
		bucket.Close()
		return nil, err
	}
	w.owned = true
	return w, nil
}

// NewWriter wraps an already open bucket. The caller keeps ownership.
func NewWriter(bucket *blob.Bucket, prefix string, logger *zap.Logger) (*Writer, error) {
	if bucket == nil {
		return nil, errors.New("bucket cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Writer{
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.Named("quarantine"),
		now:    time.Now,
	}, nil
}

// Key returns the object key for one run, entity and stage
func (w *Writer) Key(runID, entity string, stage Stage) string {
	return path.Join(w.prefix, entity, fmt.Sprintf("%s-%s.parquet", runID, stage))
}

// Write stores entries under Key(runID, entity, stage) and returns the key.
// Nothing is written for an empty slice.
func (w *Writer) Write(ctx context.Context, runID, entity string, stage Stage, columns []string, entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	at := w.now().UnixMilli()
	records := make([]Record, len(entries))
	for i, e := range entries {
		payload, err := model.MarshalRow(columns, e.Row)
		if err != nil {
			return "", fmt.Errorf("failed to serialize quarantined row %d: %w", i, err)
		}
		records[i] = Record{
			RunID:           runID,
			Entity:          entity,
			Stage:           string(stage),
			Reasons:         strings.Join(e.Reasons, ","),
			Payload:         string(payload),
			QuarantinedAtMs: at,
		}
	}

	data, err := encode(records)
	if err != nil {
		return "", err
	}

	key := w.Key(runID, entity, stage)
	bw, err := w.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: "application/vnd.apache.parquet"})
	if err != nil {
		return "", fmt.Errorf("failed to create writer for %s: %w", key, err)
	}
	if _, err := bw.Write(data); err != nil {
		bw.Close()
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := bw.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", key, err)
	}

	w.logger.Info("Quarantined rows",
		zap.String("entity", entity),
		zap.String("stage", string(stage)),
		zap.Int("rows", len(records)),
		zap.String("key", key))
	return key, nil
}

// Read loads the records stored at key
func (w *Writer) Read(ctx context.Context, key string) ([]Record, error) {
	data, err := w.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	records, err := parquet.Read[Record](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return records, nil
}

// Close releases the bucket when the writer opened it
func (w *Writer) Close() error {
	if !w.owned {
		return nil
	}
	return w.bucket.Close()
}

func encode(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	pw := parquet.NewGenericWriter[Record](&buf, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(records); err != nil {
		return nil, fmt.Errorf("failed to encode quarantine records: %w", err)
	}
	if err := pw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return buf.Bytes(), nil
}
