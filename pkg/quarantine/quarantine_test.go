package quarantine

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"gocloud.dev/blob/memblob"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

func TestWriteAndRead(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	w, err := NewWriter(bucket, "/quarantine/", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	w.now = func() time.Time { return time.UnixMilli(1700000000000) }

	entries := []Entry{
		{
			Row:     model.Row{"sls_ord_num": model.Text("SO1"), "sls_price": model.Float(-5)},
			Reasons: []string{"negative_sls_price"},
		},
		{
			Row:     model.Row{"sls_ord_num": model.Text("SO2"), "sls_price": model.Missing(model.KindFloat)},
			Reasons: []string{"missing_sls_price", "missing_sls_quantity"},
		},
	}

	key, err := w.Write(ctx, "run-1", "crm_sales_details", StageInvalid, []string{"sls_ord_num", "sls_price"}, entries)
	if err != nil {
		t.Fatal(err)
	}
	if key != "quarantine/crm_sales_details/run-1-invalid.parquet" {
		t.Errorf("key = %s", key)
	}

	records, err := w.Read(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("read %d records", len(records))
	}

	want := []Record{
		{RunID: "run-1", Entity: "crm_sales_details", Stage: "invalid", Reasons: "negative_sls_price", Payload: `{"sls_ord_num":"SO1","sls_price":-5}`, QuarantinedAtMs: 1700000000000},
		{RunID: "run-1", Entity: "crm_sales_details", Stage: "invalid", Reasons: "missing_sls_price,missing_sls_quantity", Payload: `{"sls_ord_num":"SO2","sls_price":null}`, QuarantinedAtMs: 1700000000000},
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("record %d = %+v\nwant %+v", i, records[i], want[i])
		}
	}
}

func TestEmptyWriteIsSkipped(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	w, _ := NewWriter(bucket, "q", zap.NewNop())
	key, err := w.Write(ctx, "run-1", "erp_loc_a101", StageDropped, nil, nil)
	if err != nil || key != "" {
		t.Fatalf("key = %q, err = %v", key, err)
	}

	exists, err := bucket.Exists(ctx, w.Key("run-1", "erp_loc_a101", StageDropped))
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("empty write created an object")
	}
}

func TestOpenByURL(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(context.Background(), "file://"+dir, "", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	key, err := w.Write(context.Background(), "r", "crm_customers_info", StageSuperseded, []string{"cst_id"},
		[]Entry{{Row: model.Row{"cst_id": model.Integer(3)}, Reasons: []string{"superseded"}}})
	if err != nil {
		t.Fatal(err)
	}
	if key != "crm_customers_info/r-superseded.parquet" {
		t.Errorf("key = %s", key)
	}
	records, err := w.Read(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Payload != `{"cst_id":3}` {
		t.Errorf("records = %+v", records)
	}
}

func TestNewWriterRequiresArguments(t *testing.T) {
	if _, err := NewWriter(nil, "", zap.NewNop()); err == nil {
		t.Error("expected error for nil bucket")
	}
	if _, err := NewWriter(memblob.OpenBucket(nil), "", nil); err == nil {
		t.Error("expected error for nil logger")
	}
}
