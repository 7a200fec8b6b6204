package match

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/folio-labs/matchbook/internal/types"
)

func batchRecords(n int) []types.Record {
	// Even indices hit the lookup, odd indices stay unmatched
	records := make([]types.Record, n)
	for i := range records {
		if i%2 == 0 {
			records[i] = types.Record{"mobile_number": "91234567", "idx": i}
		} else {
			records[i] = types.Record{"mobile_number": fmt.Sprintf("0000%04d", i), "idx": i}
		}
	}
	return records
}

func TestRun_OrderPreserved(t *testing.T) {
	m := NewMatcher(testLookup())
	records := batchRecords(100)

	results, stats, err := Run(context.Background(), m, records, 8)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != len(records) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(records))
	}
	for i, res := range results {
		wantMatched := i%2 == 0
		if res.Matched != wantMatched {
			t.Fatalf("results[%d].Matched = %v, want %v; output order must mirror input order", i, res.Matched, wantMatched)
		}
	}
	if stats.Total != 100 || stats.Matched != 50 || stats.Unmatched != 50 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestRun_MatchesSequential(t *testing.T) {
	m := NewMatcher(testLookup())
	records := batchRecords(37)

	sequential := make([]MatchResult, len(records))
	for i, rec := range records {
		sequential[i] = m.Match(rec)
	}

	parallel, stats, err := Run(context.Background(), m, records, 5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(parallel, sequential) {
		t.Error("parallel results differ from sequential matching")
	}

	want := Collect(sequential)
	if stats.Total != want.Total || stats.Matched != want.Matched || !reflect.DeepEqual(stats.ByTier, want.ByTier) {
		t.Errorf("stats = %+v, want counts of %+v", stats, want)
	}
}

func TestRun_DefaultWorkers(t *testing.T) {
	m := NewMatcher(testLookup())

	results, _, err := Run(context.Background(), m, batchRecords(10), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 10 {
		t.Errorf("len(results) = %d, want 10", len(results))
	}
}

func TestRun_EmptyBatch(t *testing.T) {
	m := NewMatcher(testLookup())

	results, stats, err := Run(context.Background(), m, nil, 4)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 0 || stats.Total != 0 {
		t.Errorf("results = %v, stats = %+v", results, stats)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	m := NewMatcher(testLookup())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Run(ctx, m, batchRecords(50), 4)
	if err == nil {
		t.Fatal("expected a context error")
	}
}

func TestRunEnriched(t *testing.T) {
	m := NewMatcher(testLookup())
	records := []types.Record{
		{"mobile_number": "91234567", "amount": 10},
		{"mobile_number": "55550000"},
	}

	enriched, stats, err := RunEnriched(context.Background(), m, records, 2)
	if err != nil {
		t.Fatalf("RunEnriched: %v", err)
	}
	if enriched[0][FieldDepartment] != "Retail" || enriched[0][FieldMatched] != true {
		t.Errorf("enriched[0] = %v", enriched[0])
	}
	if enriched[0]["amount"] != 10 {
		t.Error("original fields must survive enrichment")
	}
	if enriched[1][FieldShopCode] != types.ShopCodeUnmatched {
		t.Errorf("enriched[1] = %v", enriched[1])
	}
	if stats.Matched != 1 || stats.Unmatched != 1 {
		t.Errorf("stats = %+v", stats)
	}

	// Inputs stay untouched
	if _, ok := records[0][FieldDepartment]; ok {
		t.Error("RunEnriched mutated an input record")
	}
}
