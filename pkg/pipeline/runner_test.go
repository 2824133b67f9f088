package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gocloud.dev/blob/memblob"

	"github.com/David-Botos/warehouse-ingress/pkg/cleaner"
	"github.com/David-Botos/warehouse-ingress/pkg/ledger"
	"github.com/David-Botos/warehouse-ingress/pkg/model"
	"github.com/David-Botos/warehouse-ingress/pkg/quarantine"
	"github.com/David-Botos/warehouse-ingress/pkg/standardizer"
	"github.com/David-Botos/warehouse-ingress/pkg/validator"
)

// memorySink keeps written tables in memory
type memorySink struct {
	mu       sync.Mutex
	tables   map[string][]model.Row
	declared map[string]model.Schema
	fail     error
}

func newMemorySink() *memorySink {
	return &memorySink{
		tables:   make(map[string][]model.Row),
		declared: make(map[string]model.Schema),
	}
}

func (s *memorySink) Declare(table string, schema model.Schema) {
	s.declared[table] = schema
}

func (s *memorySink) Write(_ context.Context, table string, batch *model.Batch, mode model.WriteMode) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return 0, s.fail
	}
	if mode == model.WriteReplace {
		s.tables[table] = nil
	}
	s.tables[table] = append(s.tables[table], batch.Rows...)
	return int64(batch.Len()), nil
}

func (s *memorySink) rows(table string) []model.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables[table]
}

func customersEntity() EntityPipeline {
	return EntityPipeline{
		Name:        "crm_customers_info",
		Source:      "crm",
		File:        "source_crm/cust_info.csv",
		BronzeTable: "crm_customers_info",
		SilverTable: "crm_customers_info",
		Schema: model.NewSchema("crm_customers_info",
			model.Col("cst_id", model.KindInteger),
			model.Col("cst_firstname", model.KindText),
			model.Col("cst_gndr", model.KindText),
			model.Col("cst_marital_status", model.KindText),
			model.Col("cst_create_date", model.KindTimestamp),
		),
		Normalize: cleaner.Rules{TitleCase: []string{"cst_firstname"}},
		Dictionaries: []standardizer.Dictionary{
			{Field: "cst_gndr", Mapping: map[string]string{"F": "Female", "M": "Male"}, CaseInsensitive: true},
			{Field: "cst_marital_status", Mapping: map[string]string{"S": "Single", "M": "Married"}, CaseInsensitive: true},
		},
		Rules:       []validator.Rule{validator.IsMissing("cst_id")},
		BusinessKey: []string{"cst_id"},
		OrderBy:     "cst_create_date",
	}
}

type fixture struct {
	dir     string
	ledger  *ledger.Ledger
	bronze  *memorySink
	silver  *memorySink
	store   *quarantine.Writer
	metrics *Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	store, err := quarantine.NewWriter(bucket, "quarantine", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	return &fixture{
		dir:     dir,
		ledger:  ledger.New(filepath.Join(dir, "metadata", "ingestion_log.csv"), zap.NewNop()),
		bronze:  newMemorySink(),
		silver:  newMemorySink(),
		store:   store,
		metrics: NewMetrics(""),
	}
}

func (f *fixture) writeFile(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) runner(t *testing.T, logger *zap.Logger, entities ...EntityPipeline) *Runner {
	t.Helper()
	r, err := NewRunner(logger, Options{
		DataDir:    f.dir,
		Ledger:     f.ledger,
		Bronze:     f.bronze,
		Silver:     f.silver,
		Quarantine: f.store,
		Metrics:    f.metrics,
	}, entities...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

const customerExtract = `cst_id,cst_firstname,cst_gndr,cst_marital_status,cst_create_date
1, jon ,m,s,2024-01-01
1,jon,f,m,2024-06-01
`

func TestCustomerScenario(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "source_crm/cust_info.csv", customerExtract)
	r := f.runner(t, zap.NewNop(), customersEntity())

	summary := r.Run(context.Background())
	if summary.Succeeded != 1 || summary.Failed != 0 || summary.Total != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	silver := f.silver.rows("crm_customers_info")
	if len(silver) != 1 {
		t.Fatalf("silver has %d rows, want 1", len(silver))
	}
	kept := silver[0]
	if kept["cst_id"].Int != 1 || kept["cst_gndr"].Str != "Female" || kept["cst_marital_status"].Str != "Married" {
		t.Errorf("kept = %+v", kept)
	}
	if kept["cst_firstname"].Str != "Jon" {
		t.Errorf("firstname = %q", kept["cst_firstname"].Str)
	}
	if _, ok := kept[model.RawRowColumn]; ok {
		t.Error("raw_row reached silver")
	}

	bronze := f.bronze.rows("crm_customers_info")
	if len(bronze) != 2 || bronze[0][model.RawRowColumn].IsMissing() {
		t.Errorf("bronze rows = %d", len(bronze))
	}

	res := summary.Result("crm_customers_info")
	if res.RowsSuperseded != 1 || res.RowsCaptured != 2 || res.RowsWritten != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(res.QuarantineKeys) != 1 {
		t.Fatalf("quarantine keys = %v", res.QuarantineKeys)
	}

	records, err := f.store.Read(context.Background(), res.QuarantineKeys[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Stage != "superseded" || !strings.Contains(records[0].Payload, `"cst_gndr":"Male"`) {
		t.Errorf("quarantined = %+v", records)
	}
	if records[0].RunID != summary.RunID {
		t.Errorf("run id = %s, want %s", records[0].RunID, summary.RunID)
	}
}

func TestSecondRunSkipsBronze(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "source_crm/cust_info.csv", customerExtract)
	r := f.runner(t, zap.NewNop(), customersEntity())

	r.Run(context.Background())
	summary := r.Run(context.Background())

	if got := len(f.bronze.rows("crm_customers_info")); got != 2 {
		t.Errorf("bronze rows after two runs = %d, want 2", got)
	}
	if got := len(f.silver.rows("crm_customers_info")); got != 1 {
		t.Errorf("silver rows after two runs = %d, want 1", got)
	}
	if res := summary.Result("crm_customers_info"); !res.BronzeSkipped || !res.Success {
		t.Errorf("second run result = %+v", res)
	}

	entries, err := f.ledger.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(entries))
	}
}

func TestFailureDoesNotStopSiblings(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "source_crm/cust_info.csv", customerExtract)

	missing := customersEntity()
	missing.Name = "crm_customers_archive"
	missing.File = "source_crm/absent.csv"
	missing.BronzeTable = "crm_customers_archive"
	missing.SilverTable = "crm_customers_archive"

	core, logs := observer.New(zapcore.ErrorLevel)
	r := f.runner(t, zap.New(core), missing, customersEntity())

	summary := r.Run(context.Background())
	if summary.Total != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if got := summary.FailedEntities(); len(got) != 1 || got[0] != "crm_customers_archive" {
		t.Errorf("failed = %v", got)
	}
	if summary.ErrorCategories[ErrorCategoryNotFound] != 1 {
		t.Errorf("categories = %v", summary.ErrorCategories)
	}
	if logs.FilterMessage("Entity pipeline failed").Len() != 1 {
		t.Error("failure not logged")
	}
	if len(f.silver.rows("crm_customers_info")) != 1 {
		t.Error("sibling entity did not load")
	}
}

func TestBronzeFailureLeavesLedgerUnmarked(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "source_crm/cust_info.csv", customerExtract)
	f.bronze.fail = errors.New("connection refused")
	r := f.runner(t, zap.NewNop(), customersEntity())

	res, err := r.RunEntity(context.Background(), "crm_customers_info")
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Error.Category != ErrorCategorySink || res.Error.Stage != StageBronzeWrite {
		t.Errorf("error = %s", res.Error)
	}

	done, err := f.ledger.IsProcessed("crm", "cust_info.csv", "crm_customers_info")
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("ledger marked after failed bronze write")
	}
	if len(f.silver.rows("crm_customers_info")) != 0 {
		t.Error("silver written after failed bronze write")
	}
}

// failingQuarantine rejects every upload
type failingQuarantine struct{ err error }

func (q failingQuarantine) Write(context.Context, string, string, quarantine.Stage, []string, []quarantine.Entry) (string, error) {
	return "", q.err
}

func TestQuarantineFailureKeepsPreviousSilver(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "source_crm/cust_info.csv", customerExtract)
	previous := model.Row{"cst_id": model.Integer(99)}
	f.silver.tables["crm_customers_info"] = []model.Row{previous}

	r, err := NewRunner(zap.NewNop(), Options{
		DataDir:    f.dir,
		Ledger:     f.ledger,
		Bronze:     f.bronze,
		Silver:     f.silver,
		Quarantine: failingQuarantine{err: errors.New("bucket unavailable")},
	}, customersEntity())
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.RunEntity(context.Background(), "crm_customers_info")
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Error.Category != ErrorCategorySink || res.Error.Stage != StageQuarantine {
		t.Errorf("error = %s", res.Error)
	}

	rows := f.silver.rows("crm_customers_info")
	if len(rows) != 1 || rows[0]["cst_id"].Int != 99 {
		t.Errorf("silver = %+v, want the previous table untouched", rows)
	}
	if res.RowsWritten != 0 {
		t.Errorf("written = %d", res.RowsWritten)
	}
}

func TestSchemaErrorFailsEntity(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "source_crm/cust_info.csv", customerExtract)
	p := customersEntity()
	p.Normalize.TitleCase = []string{"cst_lastname"}
	r := f.runner(t, zap.NewNop(), p)

	res, err := r.RunEntity(context.Background(), p.Name)
	var schemaErr *model.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if res.Error.Category != ErrorCategorySchema || res.Error.Stage != StageNormalize {
		t.Errorf("error = %s", res.Error)
	}
}

func TestUnknownEntityNames(t *testing.T) {
	f := newFixture(t)
	r := f.runner(t, zap.NewNop(), customersEntity())

	_, err := r.RunEntity(context.Background(), "payroll")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Name != "payroll" {
		t.Errorf("RunEntity error = %v", err)
	}

	if _, err := r.RunSelected(context.Background(), []string{"crm_customers_info", "payroll"}); !errors.As(err, &cfgErr) {
		t.Errorf("RunSelected error = %v", err)
	}
	if len(f.bronze.rows("crm_customers_info")) != 0 {
		t.Error("entities ran despite an unknown name")
	}
}

func TestInvalidAndDroppedRowsAreQuarantined(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "source_crm/cust_info.csv", `cst_id,cst_firstname,cst_gndr,cst_marital_status,cst_create_date
,ann,f,s,2024-01-01
2,bo,x,s,2024-01-01
3,cy,m,m,2024-01-01
`)
	p := customersEntity()
	p.Dictionaries[0].Policy = standardizer.DropUnmapped
	r := f.runner(t, zap.NewNop(), p)

	res, err := r.RunEntity(context.Background(), p.Name)
	if err != nil {
		t.Fatal(err)
	}
	if res.RowsInvalid != 1 || res.RowsDropped != 1 || res.RowsWritten != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.RowsValid+res.RowsInvalid+res.RowsDropped != res.RowsCaptured {
		t.Errorf("rows do not add up: %+v", res)
	}
	if len(res.QuarantineKeys) != 2 {
		t.Fatalf("keys = %v", res.QuarantineKeys)
	}

	invalid, err := f.store.Read(context.Background(), res.QuarantineKeys[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(invalid) != 1 || invalid[0].Reasons != "missing_cst_id" {
		t.Errorf("invalid = %+v", invalid)
	}
}

func TestCancelledRunRecordsRemainingEntities(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "source_crm/cust_info.csv", customerExtract)
	r := f.runner(t, zap.NewNop(), customersEntity())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary := r.Run(ctx)
	if summary.Failed != 1 || summary.Succeeded != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(f.bronze.rows("crm_customers_info")) != 0 {
		t.Error("cancelled run wrote bronze")
	}
}

func TestMetricsAreRecorded(t *testing.T) {
	f := newFixture(t)
	f.writeFile(t, "source_crm/cust_info.csv", customerExtract)
	r := f.runner(t, zap.NewNop(), customersEntity())
	r.Run(context.Background())

	if got := testutil.ToFloat64(f.metrics.EntityRuns.WithLabelValues("crm_customers_info", "succeeded")); got != 1 {
		t.Errorf("succeeded runs = %v", got)
	}
	if got := testutil.ToFloat64(f.metrics.Rows.WithLabelValues("crm_customers_info", "superseded")); got != 1 {
		t.Errorf("superseded rows = %v", got)
	}

	path := filepath.Join(t.TempDir(), "warehouse.prom")
	if err := f.metrics.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "warehouse_ingress_entity_runs_total") {
		t.Errorf("textfile missing entity runs:\n%s", data)
	}
}

func TestSilverTablesAreDeclared(t *testing.T) {
	f := newFixture(t)
	f.runner(t, zap.NewNop(), customersEntity())
	if _, ok := f.silver.declared["crm_customers_info"]; !ok {
		t.Error("silver schema not declared")
	}
}

func TestNewRunnerRejectsBadDeclarations(t *testing.T) {
	f := newFixture(t)
	opts := Options{DataDir: f.dir, Ledger: f.ledger, Bronze: f.bronze, Silver: f.silver}

	noOrder := customersEntity()
	noOrder.OrderBy = ""

	tests := []struct {
		name     string
		entities []EntityPipeline
	}{
		{"duplicate", []EntityPipeline{customersEntity(), customersEntity()}},
		{"key without ordering", []EntityPipeline{noOrder}},
		{"missing file", []EntityPipeline{{Name: "x", Source: "crm", BronzeTable: "x", SilverTable: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRunner(zap.NewNop(), opts, tt.entities...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
