package generator_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/catalog"
	"github.com/David-Botos/warehouse-ingress/pkg/generator"
	"github.com/David-Botos/warehouse-ingress/pkg/ledger"
	"github.com/David-Botos/warehouse-ingress/pkg/model"
	"github.com/David-Botos/warehouse-ingress/pkg/pipeline"
)

func generate(t *testing.T, opts generator.Options) string {
	t.Helper()
	g, err := generator.New(zap.NewNop(), opts)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	files, err := g.Write(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 6 {
		t.Fatalf("wrote %d files", len(files))
	}
	return dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return records
}

func TestWriteMatchesCatalogFiles(t *testing.T) {
	dir := generate(t, generator.Options{Rows: 20, Seed: 7, DefectRate: 0.2})

	headers := map[string]string{
		"source_crm/cust_info.csv":     "cst_id",
		"source_crm/prd_info.csv":      "prd_id",
		"source_crm/sales_details.csv": "sls_ord_num",
		"source_erp/CUST_AZ12.csv":     "CID",
		"source_erp/LOC_A101.csv":      "CID",
		"source_erp/PX_CAT_G1V2.csv":   "ID",
	}
	for _, e := range catalog.Builtin(nil) {
		records := readCSV(t, filepath.Join(dir, e.File))
		if len(records) < 2 {
			t.Errorf("%s has no data rows", e.File)
			continue
		}
		if records[0][0] != headers[e.File] {
			t.Errorf("%s header starts with %q", e.File, records[0][0])
		}
	}

	customers := readCSV(t, filepath.Join(dir, "source_crm/cust_info.csv"))
	if len(customers)-1 < 20 {
		t.Errorf("got %d customer rows, want at least 20", len(customers)-1)
	}
}

func TestSameSeedSameOutput(t *testing.T) {
	opts := generator.Options{Rows: 15, Seed: 42, DefectRate: 0.3}
	a, b := generate(t, opts), generate(t, opts)

	for _, e := range catalog.Builtin(nil) {
		x, err := os.ReadFile(filepath.Join(a, e.File))
		if err != nil {
			t.Fatal(err)
		}
		y, err := os.ReadFile(filepath.Join(b, e.File))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(x, y) {
			t.Errorf("%s differs between runs with the same seed", e.File)
		}
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name   string
		logger *zap.Logger
		opts   generator.Options
	}{
		{"nil logger", nil, generator.DefaultOptions()},
		{"no rows", zap.NewNop(), generator.Options{Rows: 0}},
		{"defect rate above one", zap.NewNop(), generator.Options{Rows: 1, DefectRate: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := generator.New(tt.logger, tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

type countingSink struct {
	rows map[string]int
}

func (s *countingSink) Write(_ context.Context, table string, batch *model.Batch, mode model.WriteMode) (int64, error) {
	if mode == model.WriteReplace {
		s.rows[table] = 0
	}
	s.rows[table] += batch.Len()
	return int64(batch.Len()), nil
}

func TestGeneratedExtractsLoad(t *testing.T) {
	dir := generate(t, generator.Options{Rows: 50, Seed: 3, DefectRate: 0.15})

	silver := &countingSink{rows: make(map[string]int)}
	r, err := pipeline.NewRunner(zap.NewNop(), pipeline.Options{
		DataDir: dir,
		Ledger:  ledger.New(filepath.Join(dir, "metadata", "ingestion_log.csv"), zap.NewNop()),
		Bronze:  &countingSink{rows: make(map[string]int)},
		Silver:  silver,
	}, catalog.Builtin(nil)...)
	if err != nil {
		t.Fatal(err)
	}

	summary := r.Run(context.Background())
	if summary.Failed != 0 {
		t.Fatalf("failed entities: %v", summary.FailedEntities())
	}
	for _, e := range catalog.Builtin(nil) {
		if silver.rows[e.SilverTable] == 0 {
			t.Errorf("%s: no conformed rows", e.Name)
		}
	}
	if n := silver.rows["crm_customers_info"]; n > 50 {
		t.Errorf("customers = %d, duplicates were not removed", n)
	}
}
