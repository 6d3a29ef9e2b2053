package importtask

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/qhato/taxorders/internal/geozone"
	"github.com/qhato/taxorders/internal/importcsv"
	orderdomain "github.com/qhato/taxorders/internal/order/domain"
	"github.com/qhato/taxorders/internal/taxrate"
)

type fakeResolver struct{}

func (fakeResolver) Resolve(c geozone.Coordinate) (string, bool, error) {
	if c.Latitude < 0 {
		return "", false, nil
	}
	return "0061", true, nil
}

type fakeCatalog struct{}

func (fakeCatalog) Lookup(code string) (taxrate.Breakdown, bool) {
	if code != "0061" {
		return taxrate.Breakdown{}, false
	}
	return taxrate.Breakdown{
		ReportingCode:    code,
		StateRate:        decimal.NewFromFloat(0.04),
		CompositeTaxRate: decimal.NewFromFloat(0.04),
	}, true
}

func newTestExecutor() *Executor {
	calc := orderdomain.NewCalculator(fakeResolver{}, fakeCatalog{})
	return &Executor{
		calc:               calc,
		parallelChunks:     ParallelImportChunks,
		computeBatchSize:   ImportComputeBatchSize,
	}
}

func TestSplitRoundRobin_PreservesAllRecordsAndRowNumbers(t *testing.T) {
	records := make([][]string, 23)
	for i := range records {
		records[i] = []string{"x"}
	}
	chunks := splitRoundRobin(records, 1, 5)

	seen := map[int]bool{}
	total := 0
	for _, c := range chunks {
		for _, ir := range c {
			seen[ir.rowNumber] = true
			total++
		}
	}
	if total != 23 {
		t.Fatalf("expected 23 records distributed, got %d", total)
	}
	for i := 1; i <= 23; i++ {
		if !seen[i] {
			t.Errorf("row number %d missing from chunks", i)
		}
	}
}

func TestComputeBatch_SequentialMatchesParallelOrdering(t *testing.T) {
	exec := newTestExecutor()
	records := [][]string{
		{"40.0", "-74.0", "2025-06-01T00:00:00Z", "10.00"},
		{"-40.0", "-74.0", "2025-06-01T00:00:00Z", "10.00"}, // negative lat -> outside coverage
		{"40.0", "-74.0", "2025-06-01T00:00:00Z", "20.00"},
	}
	cols, _ := importcsv.ResolveColumns([]string{"latitude", "longitude", "timestamp", "subtotal"})

	seq := exec.computeBatch(records, cols, 1, false)
	par := exec.computeBatch(records, cols, 1, true)

	if len(seq) != 3 || len(par) != 3 {
		t.Fatalf("expected 3 outcomes each, got seq=%d par=%d", len(seq), len(par))
	}
	for i := range seq {
		if seq[i].RowNumber != par[i].RowNumber || seq[i].Success != par[i].Success {
			t.Errorf("mismatch at index %d: seq=%+v par=%+v", i, seq[i], par[i])
		}
	}
	if seq[1].Success {
		t.Error("expected row 2 (negative latitude) to fail as outside coverage")
	}
	if !seq[0].Success || !seq[2].Success {
		t.Error("expected rows 1 and 3 to succeed")
	}
}
