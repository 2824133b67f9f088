package standardizer

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

func textBatch(column string, values ...string) *model.Batch {
	b := model.NewBatch("test", []string{column})
	for _, v := range values {
		if v == "<nil>" {
			b.Append(model.Row{column: model.Missing(model.KindText)})
			continue
		}
		b.Append(model.Row{column: model.Text(v)})
	}
	return b
}

var gender = Dictionary{
	Field:           "cst_gndr",
	Mapping:         map[string]string{"m": "Male", "f": "Female"},
	CaseInsensitive: true,
}

func TestDictionaryFallback(t *testing.T) {
	s, err := New(zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		input string
		want  string
	}{
		{"m", "Male"},
		{" F ", "Female"},
		{"x", "Unknown"},
		{"<nil>", "Unknown"},
		{"", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res, err := s.Apply(textBatch("cst_gndr", tt.input), []Dictionary{gender}, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got := res.Batch.Rows[0]["cst_gndr"].Str; got != tt.want {
				t.Errorf("standardize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDictionaryExactMatchByDefault(t *testing.T) {
	s, _ := New(zap.NewNop())
	line := Dictionary{
		Field:   "prd_line",
		Mapping: map[string]string{"R": "Road", "M": "Mountain"},
	}

	res, err := s.Apply(textBatch("prd_line", "R", "r", " M "), []Dictionary{line}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Road", "Unknown", "Mountain"}
	for i, w := range want {
		if got := res.Batch.Rows[i]["prd_line"].Str; got != w {
			t.Errorf("row %d = %q, want %q", i, got, w)
		}
	}
	if len(res.Operations) != 1 {
		t.Errorf("expected one fallback operation, got %d", len(res.Operations))
	}
}

func TestCustomFallbackLabel(t *testing.T) {
	s, _ := New(zap.NewNop())
	d := Dictionary{Field: "c", Mapping: map[string]string{"a": "A"}, Fallback: "n/a"}

	res, _ := s.Apply(textBatch("c", "zzz"), []Dictionary{d}, nil)
	if got := res.Batch.Rows[0]["c"].Str; got != "n/a" {
		t.Errorf("got %q, want n/a", got)
	}
}

func TestDropUnmappedReportsRows(t *testing.T) {
	s, _ := New(zap.NewNop())
	d := Dictionary{Field: "c", Mapping: map[string]string{"a": "A"}, Policy: DropUnmapped}

	res, err := s.Apply(textBatch("c", "a", "b", "<nil>"), []Dictionary{d}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Batch.Len() != 1 || len(res.Dropped) != 2 {
		t.Fatalf("kept %d dropped %d, want 1 and 2", res.Batch.Len(), len(res.Dropped))
	}
	if res.Dropped[0].Reason == "" {
		t.Error("dropped row should carry a reason")
	}
}

func TestMissingDictionaryFieldIsSchemaError(t *testing.T) {
	s, _ := New(zap.NewNop())

	_, err := s.Apply(textBatch("other", "x"), []Dictionary{gender}, nil)
	var schemaErr *model.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestSplitKey(t *testing.T) {
	s, _ := New(zap.NewNop())
	rule := SplitKey{Source: "prd_key", CategoryColumn: "cat_id", ResidualColumn: "prd_key_", Width: 5, DashToUnderscore: true}

	res, err := s.Apply(textBatch("prd_key", "CO-RF-FR-R92B-58", "AB", "<nil>"), nil, []DeriveRule{rule})
	if err != nil {
		t.Fatal(err)
	}

	rows := res.Batch.Rows
	if rows[0]["cat_id"].Str != "CO_RF" || rows[0]["prd_key_"].Str != "FR-R92B-58" {
		t.Errorf("split = %q / %q", rows[0]["cat_id"].Str, rows[0]["prd_key_"].Str)
	}
	if rows[1]["cat_id"].Str != "AB" || !rows[1]["prd_key_"].IsMissing() {
		t.Errorf("short key split = %+v", rows[1])
	}
	if !rows[2]["cat_id"].IsMissing() {
		t.Error("missing key should give missing category")
	}
	if !res.Batch.HasColumn("cat_id") || !res.Batch.HasColumn("prd_key_") {
		t.Error("derived columns not declared")
	}
}

func TestInferEndDate(t *testing.T) {
	day := func(m, d int) model.Value { return model.Timestamp(time.Date(2024, time.Month(m), d, 0, 0, 0, 0, time.UTC)) }

	b := model.NewBatch("products", []string{"prd_key", "start"})
	b.Append(model.Row{"prd_key": model.Text("A"), "start": day(3, 1)})
	b.Append(model.Row{"prd_key": model.Text("B"), "start": day(1, 1)})
	b.Append(model.Row{"prd_key": model.Text("A"), "start": day(1, 1)})
	b.Append(model.Row{"prd_key": model.Text("A"), "start": model.Missing(model.KindTimestamp)})

	s, _ := New(zap.NewNop())
	res, err := s.Apply(b, nil, []DeriveRule{InferEndDate{Key: "prd_key", Start: "start", End: "end"}})
	if err != nil {
		t.Fatal(err)
	}

	rows := res.Batch.Rows
	if !rows[0]["end"].IsMissing() {
		t.Errorf("latest A should have no end date, got %v", rows[0]["end"])
	}
	if !rows[1]["end"].IsMissing() {
		t.Error("single B should have no end date")
	}
	if !rows[2]["end"].Equal(day(2, 29)) {
		t.Errorf("first A end = %v, want 2024-02-29", rows[2]["end"])
	}
	if !rows[3]["end"].IsMissing() {
		t.Error("row without start should have no end date")
	}
}

func TestTrimIdentifierDropsShortIds(t *testing.T) {
	s, _ := New(zap.NewNop())

	res, err := s.Apply(textBatch("cid", "NASAW00011000", "AW00011001", "AW1", "<nil>"), nil,
		[]DeriveRule{TrimIdentifier{Field: "cid", Length: 10}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Batch.Len() != 2 || len(res.Dropped) != 2 {
		t.Fatalf("kept %d dropped %d", res.Batch.Len(), len(res.Dropped))
	}
	if res.Batch.Rows[0]["cid"].Str != "AW00011000" {
		t.Errorf("trimmed cid = %q", res.Batch.Rows[0]["cid"].Str)
	}
}

func TestStripFillAndFutureDates(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := model.NewBatch("x", []string{"cid", "cost", "bdate"})
	b.Append(model.Row{
		"cid":   model.Text("AW-00011000"),
		"cost":  model.Missing(model.KindFloat),
		"bdate": model.Timestamp(now.AddDate(5, 0, 0)),
	})

	s, _ := New(zap.NewNop())
	res, err := s.Apply(b, nil, []DeriveRule{
		StripCharacters{Field: "cid", Chars: "-"},
		FillMissing{Field: "cost", Value: model.Float(0)},
		FutureDateToMissing{Field: "bdate", Now: func() time.Time { return now }},
	})
	if err != nil {
		t.Fatal(err)
	}

	row := res.Batch.Rows[0]
	if row["cid"].Str != "AW00011000" {
		t.Errorf("cid = %q", row["cid"].Str)
	}
	if !row["cost"].Equal(model.Float(0)) {
		t.Errorf("cost = %+v", row["cost"])
	}
	if !row["bdate"].IsMissing() {
		t.Error("future birth date should be missing")
	}
}
