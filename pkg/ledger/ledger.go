// pkg/ledger/ledger.go
package ledger

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var header = []string{"source", "file_name", "target"}

// Entry is one committed (source, file, target) load
type Entry struct {
	Source   string
	FileName string
	Target   string
}

// Matches compares two entries after trimming, ignoring case
func (e Entry) Matches(other Entry) bool {
	return normalize(e.Source) == normalize(other.Source) &&
		normalize(e.FileName) == normalize(other.FileName) &&
		normalize(e.Target) == normalize(other.Target)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Ledger is an append-only CSV log of loads that have been committed to
// their target. It is safe for concurrent use within one process.
type Ledger struct {
	path   string
	logger *zap.Logger
	mu     sync.RWMutex
}

// New creates a ledger backed by the CSV file at path. The file and its
// parent directory are created on the first MarkProcessed call.
func New(path string, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		path:   path,
		logger: logger.Named("ledger"),
	}
}

// Path returns the location of the backing file
func (l *Ledger) Path() string {
	return l.path
}

// IsProcessed reports whether the triple has already been loaded.
// A missing or empty store means nothing has been processed yet.
func (l *Ledger) IsProcessed(source, fileName, target string) (bool, error) {
	entries, err := l.Entries()
	if err != nil {
		return false, err
	}

	want := Entry{Source: source, FileName: fileName, Target: target}
	for _, e := range entries {
		if e.Matches(want) {
			return true, nil
		}
	}
	return false, nil
}

// Entries returns every stored entry in append order
func (l *Ledger) Entries() ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger %s: %w", l.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	return parseEntries(bytes.NewReader(data))
}

// MarkProcessed appends one entry. The header (on first write) and the
// record go to disk in a single append so readers never observe a
// partially written line.
func (l *Ledger) MarkProcessed(source, fileName, target string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger %s: %w", l.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat ledger %s: %w", l.path, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("failed to encode ledger header: %w", err)
		}
	}
	if err := w.Write([]string{source, fileName, target}); err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode ledger entry: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync ledger: %w", err)
	}

	l.logger.Info("Marked file processed",
		zap.String("source", source),
		zap.String("file", fileName),
		zap.String("target", target))
	return nil
}

// parseEntries reads the CSV store, locating fields by header name.
// Older stores named the third field bronze_table.
func parseEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read ledger header: %w", err)
	}

	idx := map[string]int{"source": -1, "file_name": -1, "target": -1}
	for i, name := range head {
		switch normalize(name) {
		case "source":
			idx["source"] = i
		case "file_name":
			idx["file_name"] = i
		case "target", "bronze_table":
			idx["target"] = i
		}
	}
	for name, i := range idx {
		if i < 0 {
			return nil, fmt.Errorf("ledger header is missing field %q", name)
		}
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ledger entry: %w", err)
		}
		entries = append(entries, Entry{
			Source:   field(rec, idx["source"]),
			FileName: field(rec, idx["file_name"]),
			Target:   field(rec, idx["target"]),
		})
	}
	return entries, nil
}

func field(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}
