// Package match implements reference-data lookup construction and the
// identifier matching cascade that reconciles OCR records against it.
package match

import (
	"fmt"
	"strings"

	"github.com/folio-labs/matchbook/internal/normalize"
	"github.com/folio-labs/matchbook/internal/types"
)

/*
 * Lookup construction.
 *
 * Builds a single LookupMap from one or more reference sheets. Per sheet:
 *   1. Resolve identifier/shop/department/service-type columns against the
 *      configured synonym sets (exact name first, then case-insensitive)
 *   2. Normalize each row's identifier into the lookup key
 *   3. Skip and count rows with empty or unresolvable identifiers
 *
 * A sheet whose synonym set resolves no identifier column at all is
 * skipped with a recorded warning; the batch continues with the remaining
 * sheets. Duplicate normalized keys keep the first-seen entry and record a
 * duplicate-key warning; entries are never overwritten silently.
 */

// LookupMap maps normalized identifier -> reference entry.
type LookupMap map[string]types.LookupEntry

// Synonyms holds the candidate column names for each reference-data role.
// Matching is exact-name-first, then case-insensitive, in synonym order.
type Synonyms struct {
	Identifier  []string
	ShopCode    []string
	Department  []string
	ServiceType []string
}

// DefaultSynonyms covers the column headings seen across production
// mapping sheets.
func DefaultSynonyms() Synonyms {
	return Synonyms{
		Identifier:  []string{"identifier", "mobile_number", "service_number", "phone", "Phone", "msisdn", "account_number"},
		ShopCode:    []string{"shop_code", "shop", "Shop", "cost_center", "cost_centre", "outlet"},
		Department:  []string{"department", "Department", "dept", "division"},
		ServiceType: []string{"service_type", "plan", "product"},
	}
}

// Warning kinds surfaced on the build report.
const (
	WarnSheetSkipped  = "sheet_skipped"
	WarnDuplicateKey  = "duplicate_key"
	WarnColumnMissing = "column_missing"
)

// Warning records one non-fatal lookup construction problem.
type Warning struct {
	Sheet  string
	Row    int // zero-based row index, -1 for sheet-level warnings
	Kind   string
	Detail string
}

func (w Warning) String() string {
	if w.Row >= 0 {
		return fmt.Sprintf("%s row %d: %s: %s", w.Sheet, w.Row, w.Kind, w.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", w.Sheet, w.Kind, w.Detail)
}

// BuildReport accumulates counts and warnings for one lookup construction
// run. Non-fatal by definition: callers surface it in statistics.
type BuildReport struct {
	SheetsProcessed int
	SheetsSkipped   int
	RowsIndexed     int
	RowsSkipped     int
	DuplicateKeys   int
	Warnings        []Warning
}

func (r *BuildReport) warn(sheet string, row int, kind, detail string) {
	r.Warnings = append(r.Warnings, Warning{Sheet: sheet, Row: row, Kind: kind, Detail: detail})
}

// BuildLookup constructs one LookupMap from the given reference sheets.
// Malformed sheets are skipped and recorded, never fatal.
func BuildLookup(sheets []types.Sheet, syn Synonyms) (LookupMap, *BuildReport) {
	lookup := make(LookupMap)
	report := &BuildReport{}

	for _, sheet := range sheets {
		if len(sheet.Rows) == 0 {
			report.SheetsSkipped++
			report.warn(sheet.Name, -1, WarnSheetSkipped, types.ErrEmptySheet.Error())
			continue
		}

		cols := sheet.Columns()
		idCol, ok := resolveColumn(cols, syn.Identifier)
		if !ok {
			report.SheetsSkipped++
			report.warn(sheet.Name, -1, WarnSheetSkipped, types.ErrNoIdentifierColumn.Error())
			continue
		}

		shopCol, shopOK := resolveColumn(cols, syn.ShopCode)
		deptCol, deptOK := resolveColumn(cols, syn.Department)
		svcCol, _ := resolveColumn(cols, syn.ServiceType)
		if !shopOK {
			report.warn(sheet.Name, -1, WarnColumnMissing, "no shop/cost-center column")
		}
		if !deptOK {
			report.warn(sheet.Name, -1, WarnColumnMissing, "no department column")
		}

		report.SheetsProcessed++

		for i, row := range sheet.Rows {
			raw := rowText(row, idCol)
			key := normalize.Identifier(raw)
			if key == "" {
				report.RowsSkipped++
				continue
			}

			if _, exists := lookup[key]; exists {
				// First occurrence wins; never overwrite without a trace.
				report.DuplicateKeys++
				report.warn(sheet.Name, i, WarnDuplicateKey, fmt.Sprintf("normalized key %q already present", key))
				continue
			}

			lookup[key] = types.LookupEntry{
				ShopCode:           rowText(row, shopCol),
				Department:         rowText(row, deptCol),
				ServiceType:        rowText(row, svcCol),
				OriginalIdentifier: raw,
				SourceLabel:        sheet.Name,
			}
			report.RowsIndexed++
		}
	}

	return lookup, report
}

// resolveColumn finds the first synonym present in cols: one pass of exact
// name matches in synonym order, then one case-insensitive pass. Returns
// the actual column name as it appears in the sheet.
func resolveColumn(cols []string, synonyms []string) (string, bool) {
	for _, syn := range synonyms {
		for _, col := range cols {
			if col == syn {
				return col, true
			}
		}
	}
	for _, syn := range synonyms {
		for _, col := range cols {
			if strings.EqualFold(col, syn) {
				return col, true
			}
		}
	}
	return "", false
}

// rowText renders a reference cell as trimmed text; "" for absent columns.
func rowText(row types.ReferenceRow, col string) string {
	if col == "" {
		return ""
	}
	return strings.TrimSpace(types.Text(row[col]))
}
