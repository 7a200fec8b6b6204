package match

import (
	"testing"

	"github.com/folio-labs/matchbook/internal/types"
)

func TestBuildLookup_ColumnSynonyms(t *testing.T) {
	sheets := []types.Sheet{
		{
			Name: "mapping",
			Rows: []types.ReferenceRow{
				{"Phone": "91234567", "Shop": "S01", "Department": "Retail"},
			},
		},
	}

	lookup, report := BuildLookup(sheets, DefaultSynonyms())
	if report.SheetsProcessed != 1 {
		t.Fatalf("SheetsProcessed = %d, want 1", report.SheetsProcessed)
	}
	entry, ok := lookup["91234567"]
	if !ok {
		t.Fatal("expected entry for key 91234567")
	}
	if entry.ShopCode != "S01" || entry.Department != "Retail" {
		t.Errorf("entry = %+v, want ShopCode=S01 Department=Retail", entry)
	}
	if entry.SourceLabel != "mapping" {
		t.Errorf("SourceLabel = %q, want mapping", entry.SourceLabel)
	}
	if entry.OriginalIdentifier != "91234567" {
		t.Errorf("OriginalIdentifier = %q, want 91234567", entry.OriginalIdentifier)
	}
}

func TestBuildLookup_CaseInsensitiveFallback(t *testing.T) {
	sheets := []types.Sheet{
		{
			Name: "upper-headings",
			Rows: []types.ReferenceRow{
				{"IDENTIFIER": "abc-123", "SHOP_CODE": "S02", "DEPT": "Ops"},
			},
		},
	}

	lookup, _ := BuildLookup(sheets, DefaultSynonyms())
	entry, ok := lookup["ABC123"]
	if !ok {
		t.Fatal("expected normalized entry ABC123")
	}
	if entry.ShopCode != "S02" || entry.Department != "Ops" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestBuildLookup_DuplicateFirstWins(t *testing.T) {
	sheets := []types.Sheet{
		{
			Name: "sheet1",
			Rows: []types.ReferenceRow{
				{"identifier": "9123", "shop_code": "FIRST", "department": "A"},
				{"identifier": "91-23", "shop_code": "SECOND", "department": "B"},
			},
		},
	}

	lookup, report := BuildLookup(sheets, DefaultSynonyms())
	entry := lookup["9123"]
	if entry.ShopCode != "FIRST" {
		t.Errorf("ShopCode = %q, first occurrence must win", entry.ShopCode)
	}
	if report.DuplicateKeys != 1 {
		t.Errorf("DuplicateKeys = %d, want 1", report.DuplicateKeys)
	}
	found := false
	for _, w := range report.Warnings {
		if w.Kind == WarnDuplicateKey {
			found = true
		}
	}
	if !found {
		t.Error("expected a duplicate-key warning; overwrites must never be silent")
	}
}

func TestBuildLookup_SheetWithoutIdentifierSkipped(t *testing.T) {
	sheets := []types.Sheet{
		{
			Name: "broken",
			Rows: []types.ReferenceRow{
				{"amount": 12.5, "notes": "n/a"},
			},
		},
		{
			Name: "good",
			Rows: []types.ReferenceRow{
				{"identifier": "555", "shop_code": "S05", "department": "Sales"},
			},
		},
	}

	lookup, report := BuildLookup(sheets, DefaultSynonyms())
	if report.SheetsSkipped != 1 || report.SheetsProcessed != 1 {
		t.Fatalf("skipped=%d processed=%d, want 1/1", report.SheetsSkipped, report.SheetsProcessed)
	}
	if _, ok := lookup["555"]; !ok {
		t.Error("good sheet must still be indexed after a skipped sheet")
	}
}

func TestBuildLookup_EmptyIdentifierRowsCounted(t *testing.T) {
	sheets := []types.Sheet{
		{
			Name: "partial",
			Rows: []types.ReferenceRow{
				{"identifier": "", "shop_code": "S01"},
				{"identifier": "   ", "shop_code": "S02"},
				{"identifier": "777", "shop_code": "S03"},
			},
		},
	}

	lookup, report := BuildLookup(sheets, DefaultSynonyms())
	if report.RowsSkipped != 2 {
		t.Errorf("RowsSkipped = %d, want 2", report.RowsSkipped)
	}
	if report.RowsIndexed != 1 {
		t.Errorf("RowsIndexed = %d, want 1", report.RowsIndexed)
	}
	if len(lookup) != 1 {
		t.Errorf("len(lookup) = %d, want 1", len(lookup))
	}
}

func TestBuildLookup_NumericIdentifierCells(t *testing.T) {
	// Spreadsheet parsers deliver numeric cells as float64
	sheets := []types.Sheet{
		{
			Name: "numeric",
			Rows: []types.ReferenceRow{
				{"identifier": float64(91234567), "shop_code": "S09", "department": "Biz"},
			},
		},
	}

	lookup, _ := BuildLookup(sheets, DefaultSynonyms())
	if _, ok := lookup["91234567"]; !ok {
		t.Errorf("numeric identifier cell should normalize to 91234567, lookup = %v", lookup)
	}
}

func TestResolveColumn_ExactBeforeCaseInsensitive(t *testing.T) {
	cols := []string{"PHONE", "phone"}
	got, ok := resolveColumn(cols, []string{"phone"})
	if !ok || got != "phone" {
		t.Errorf("resolveColumn = %q ok=%v, exact match must win over case-insensitive", got, ok)
	}
}
