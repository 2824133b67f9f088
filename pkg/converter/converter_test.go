package converter

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/warehouse-ingress/pkg/model"
)

func TestSQLType(t *testing.T) {
	c, err := NewTypeConverter(zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		driver string
		col    model.Column
		want   string
	}{
		{"pgx", model.Col("cst_id", model.KindInteger), "BIGINT"},
		{"postgres", model.Col(model.RawRowColumn, model.KindText), "JSONB"},
		{"duckdb", model.Col("sales_price", model.KindFloat), "DOUBLE"},
		{"duckdb", model.Col(model.RawRowColumn, model.KindText), "JSON"},
		{"mysql", model.Col("loaded_at", model.KindTimestamp), "DATETIME(6)"},
		{"sqlserver", model.Col("maintenance", model.KindBoolean), "BIT"},
		{"mssql", model.Col("cat", model.KindText), "NVARCHAR(MAX)"},
		{"oracle", model.Col("cat", model.KindText), "VARCHAR2(4000)"},
		{"oracle", model.Col(model.RawRowColumn, model.KindText), "CLOB"},
		{"snowflake", model.Col("prd_cost", model.KindInteger), "NUMBER(38,0)"},
	}

	for _, tt := range tests {
		t.Run(tt.driver+"/"+tt.col.Name, func(t *testing.T) {
			got, err := c.SQLType(tt.driver, tt.col)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("SQLType = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := c.SQLType("sqlite", model.Col("x", model.KindText)); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestColumnsForBatch(t *testing.T) {
	schema := model.NewSchema("crm_prd_info",
		model.Col("prd_id", model.KindInteger),
		model.Col("prd_key", model.KindText),
	)
	b := model.NewBatch("crm_prd_info", []string{"prd_id", "prd_key", "prd_end_date", "note"})
	b.Append(model.Row{
		"prd_id":       model.Integer(1),
		"prd_key":      model.Text("CO-RF"),
		"prd_end_date": model.Missing(model.KindTimestamp),
		"note":         model.Missing(model.KindText),
	})
	b.Append(model.Row{
		"prd_id":       model.Integer(2),
		"prd_key":      model.Text("CO-RF"),
		"prd_end_date": model.Timestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	})

	cols := ColumnsForBatch(b, &schema)
	want := []model.Kind{model.KindInteger, model.KindText, model.KindTimestamp, model.KindText}
	for i, k := range want {
		if cols[i].Kind != k {
			t.Errorf("column %s kind = %s, want %s", cols[i].Name, cols[i].Kind, k)
		}
	}
}

func TestConvertRow(t *testing.T) {
	c, _ := NewTypeConverter(zap.NewNop())
	ts := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cols := []model.Column{
		model.Col("id", model.KindInteger),
		model.Col("price", model.KindFloat),
		model.Col("flag", model.KindBoolean),
		model.Col("at", model.KindTimestamp),
		model.Col("label", model.KindText),
		model.Col(model.RawRowColumn, model.KindText),
	}
	row := model.Row{
		"id":               model.Integer(7),
		"price":            model.Integer(3),
		"flag":             model.Boolean(true),
		"at":               model.Timestamp(ts),
		"label":            model.Integer(42),
		model.RawRowColumn: model.Text(`{"id":"7"}`),
	}

	args, err := c.ConvertRow("oracle", cols, row)
	if err != nil {
		t.Fatal(err)
	}
	if args[0] != int64(7) || args[1] != float64(3) || args[2] != 1 || args[3] != ts || args[4] != "42" || args[5] != `{"id":"7"}` {
		t.Errorf("args = %#v", args)
	}

	args, err = c.ConvertRow("duckdb", cols[:3], model.Row{"id": model.Missing(model.KindInteger), "price": model.Float(1.5), "flag": model.Boolean(false)})
	if err != nil {
		t.Fatal(err)
	}
	if args[0] != nil || args[1] != 1.5 || args[2] != false {
		t.Errorf("args = %#v", args)
	}
}

func TestConvertValueRejectsMismatches(t *testing.T) {
	c, _ := NewTypeConverter(zap.NewNop())

	tests := []struct {
		name string
		col  model.Column
		v    model.Value
	}{
		{"text into integer", model.Col("id", model.KindInteger), model.Text("abc")},
		{"text into boolean", model.Col("flag", model.KindBoolean), model.Text("yes")},
		{"broken raw_row", model.Col(model.RawRowColumn, model.KindText), model.Text("{not json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.ConvertValue("postgres", tt.col, tt.v); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGenerateColumnDefinitions(t *testing.T) {
	c, _ := NewTypeConverter(zap.NewNop())
	quote := func(s string) string { return `"` + s + `"` }

	defs, err := c.GenerateColumnDefinitions("postgres", []model.Column{
		model.Col("cst_id", model.KindInteger),
		model.Col(model.RawRowColumn, model.KindText),
	}, quote)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(defs, ", "); got != `"cst_id" BIGINT, "raw_row" JSONB` {
		t.Errorf("definitions = %s", got)
	}
}
