package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "processed", "processed_files.csv"), zap.NewNop())
}

func TestFreshLedgerReportsNothingProcessed(t *testing.T) {
	l := newTestLedger(t)

	ok, err := l.IsProcessed("source_crm", "cust_info.csv", "crm_customers_info")
	if err != nil {
		t.Fatalf("IsProcessed on missing store returned error: %v", err)
	}
	if ok {
		t.Fatal("expected fresh triple to be unprocessed")
	}
}

func TestEmptyStoreReportsNothingProcessed(t *testing.T) {
	l := newTestLedger(t)
	if err := os.MkdirAll(filepath.Dir(l.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(l.Path(), nil, 0644); err != nil {
		t.Fatal(err)
	}

	ok, err := l.IsProcessed("a", "b", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected empty store to report unprocessed")
	}
}

func TestMarkThenCheck(t *testing.T) {
	l := newTestLedger(t)

	if err := l.MarkProcessed("source_crm", "cust_info.csv", "crm_customers_info"); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}

	tests := []struct {
		name                 string
		source, file, target string
		want                 bool
	}{
		{"exact", "source_crm", "cust_info.csv", "crm_customers_info", true},
		{"case and whitespace", "  SOURCE_CRM ", "Cust_Info.CSV", " crm_customers_info", true},
		{"different file", "source_crm", "prd_info.csv", "crm_customers_info", false},
		{"different target", "source_crm", "cust_info.csv", "crm_prd_info", false},
		{"different source", "source_erp", "cust_info.csv", "crm_customers_info", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.IsProcessed(tt.source, tt.file, tt.target)
			if err != nil {
				t.Fatalf("IsProcessed error: %v", err)
			}
			if got != tt.want {
				t.Errorf("IsProcessed(%q, %q, %q) = %v, want %v", tt.source, tt.file, tt.target, got, tt.want)
			}
		})
	}
}

func TestHeaderWrittenOnce(t *testing.T) {
	l := newTestLedger(t)
	for i := 0; i < 3; i++ {
		if err := l.MarkProcessed("s", fmt.Sprintf("f%d.csv", i), "t"); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}
	want := "source,file_name,target\ns,f0.csv,t\ns,f1.csv,t\ns,f2.csv,t\n"
	if string(data) != want {
		t.Errorf("ledger contents = %q, want %q", data, want)
	}

	entries, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
}

func TestLegacyHeaderAccepted(t *testing.T) {
	l := newTestLedger(t)
	if err := os.MkdirAll(filepath.Dir(l.Path()), 0755); err != nil {
		t.Fatal(err)
	}
	legacy := "source,file_name,bronze_table\nsource_erp,LOC_A101.csv,erp_location_a101\n"
	if err := os.WriteFile(l.Path(), []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	ok, err := l.IsProcessed("source_erp", "loc_a101.csv", "ERP_LOCATION_A101")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected legacy entry to match")
	}
}

func TestConcurrentMarkAndRead(t *testing.T) {
	l := newTestLedger(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if err := l.MarkProcessed("src", fmt.Sprintf("file_%02d.csv", i), "tbl"); err != nil {
				t.Errorf("MarkProcessed: %v", err)
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := l.Entries(); err != nil {
				t.Errorf("Entries: %v", err)
			}
		}()
	}
	wg.Wait()

	entries, err := l.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 20 {
		t.Fatalf("got %d entries, want 20", len(entries))
	}
	for i := 0; i < 20; i++ {
		ok, err := l.IsProcessed("src", fmt.Sprintf("file_%02d.csv", i), "tbl")
		if err != nil || !ok {
			t.Errorf("file_%02d.csv not recorded (err=%v)", i, err)
		}
	}
}
