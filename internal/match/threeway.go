package match

import (
	"fmt"

	"github.com/folio-labs/matchbook/internal/normalize"
	"github.com/folio-labs/matchbook/internal/types"
)

/*
 * Three-layer reconciliation (cost / person / department).
 *
 * Two reference tables sharing an order-number key are joined first into a
 * CostIndex (exact-key join, never fuzzy). A detail row then resolves two
 * independent outcomes:
 *   - cost: exact lookup of the detail's order number in the index
 *   - department: fuzzy match of the detail's person name against the
 *     roster, with the standard threshold semantics
 * Both outcomes are reported even when one fails and the other succeeds.
 */

// CostEntry is one joined cost-reference row.
type CostEntry struct {
	OrderNumber string
	ShopCode    string
	ServiceType string
	SourceLabel string
}

// CostIndex maps normalized order number -> joined cost entry.
type CostIndex map[string]CostEntry

// CostSynonyms names the candidate columns for the cost join.
type CostSynonyms struct {
	OrderNumber []string
	ShopCode    []string
	ServiceType []string
}

// DefaultCostSynonyms covers the order-sheet headings seen in production.
func DefaultCostSynonyms() CostSynonyms {
	return CostSynonyms{
		OrderNumber: []string{"order_number", "order_no", "order"},
		ShopCode:    []string{"shop_code", "shop", "cost_center", "cost_centre"},
		ServiceType: []string{"service_type", "plan", "product"},
	}
}

// BuildCostIndex joins primary and secondary sheets on their order-number
// columns. Primary rows establish entries; secondary rows fill blank
// fields on the matching entry. First occurrence wins on duplicate order
// numbers, with a duplicate-key warning, same policy as BuildLookup.
func BuildCostIndex(primary, secondary types.Sheet, syn CostSynonyms) (CostIndex, *BuildReport) {
	index := make(CostIndex)
	report := &BuildReport{}

	indexSheet := func(sheet types.Sheet, fillOnly bool) {
		if len(sheet.Rows) == 0 {
			report.SheetsSkipped++
			report.warn(sheet.Name, -1, WarnSheetSkipped, types.ErrEmptySheet.Error())
			return
		}
		cols := sheet.Columns()
		orderCol, ok := resolveColumn(cols, syn.OrderNumber)
		if !ok {
			report.SheetsSkipped++
			report.warn(sheet.Name, -1, WarnSheetSkipped, "no order-number column")
			return
		}
		shopCol, _ := resolveColumn(cols, syn.ShopCode)
		svcCol, _ := resolveColumn(cols, syn.ServiceType)
		report.SheetsProcessed++

		for i, row := range sheet.Rows {
			raw := rowText(row, orderCol)
			key := normalize.Identifier(raw)
			if key == "" {
				report.RowsSkipped++
				continue
			}

			if entry, exists := index[key]; exists {
				if !fillOnly {
					report.DuplicateKeys++
					report.warn(sheet.Name, i, WarnDuplicateKey, fmt.Sprintf("order number %q already present", key))
					continue
				}
				// Secondary rows only fill blanks on the joined entry
				if entry.ShopCode == "" {
					entry.ShopCode = rowText(row, shopCol)
				}
				if entry.ServiceType == "" {
					entry.ServiceType = rowText(row, svcCol)
				}
				index[key] = entry
				report.RowsIndexed++
				continue
			}

			if fillOnly {
				// Secondary row with no primary counterpart: unmatched side
				// of the join, counted but not indexed
				report.RowsSkipped++
				continue
			}

			index[key] = CostEntry{
				OrderNumber: raw,
				ShopCode:    rowText(row, shopCol),
				ServiceType: rowText(row, svcCol),
				SourceLabel: sheet.Name,
			}
			report.RowsIndexed++
		}
	}

	indexSheet(primary, false)
	indexSheet(secondary, true)
	return index, report
}

// ThreeWayResult reports both independent outcomes for one detail row.
type ThreeWayResult struct {
	CostMatched       bool
	Cost              CostEntry
	DepartmentMatched bool
	Department        string
	NameConfidence    float64
}

// ThreeWayMatcher resolves detail rows against a cost index and a roster.
type ThreeWayMatcher struct {
	costs CostIndex
	names *Matcher
}

// NewThreeWayMatcher composes the exact cost join with the fuzzy name
// matcher. The matcher's roster/threshold/similarity configuration applies
// to the department outcome.
func NewThreeWayMatcher(costs CostIndex, names *Matcher) *ThreeWayMatcher {
	return &ThreeWayMatcher{costs: costs, names: names}
}

// MatchDetail resolves one detail row's order number and person name.
func (t *ThreeWayMatcher) MatchDetail(orderNumber, personName string) ThreeWayResult {
	var result ThreeWayResult

	if key := normalize.Identifier(orderNumber); key != "" {
		if entry, ok := t.costs[key]; ok {
			result.CostMatched = true
			result.Cost = entry
		}
	}

	if entry, score, ok := t.names.MatchName(personName); ok {
		result.DepartmentMatched = true
		result.Department = entry.Department
		result.NameConfidence = score
	} else {
		result.NameConfidence = score
	}

	return result
}
