package tabular

import (
	"fmt"
	"sort"
	"strings"

	"github.com/folio-labs/matchbook/internal/expr"
	"github.com/folio-labs/matchbook/internal/types"
)

/*
 * Generation.
 *
 * Fail-closed: before any output row is produced, every input column the
 * template reads (source columns and computed-expression variables) must
 * exist in every dataset record. A missing column aborts with the full
 * missing set and zero partial rows. Per-row computed failures substitute
 * the rule's declared default; without one the failure propagates with the
 * offending row and column attached.
 */

// MissingColumnsError reports required input columns absent from the
// dataset. Names are sorted and deduplicated.
type MissingColumnsError struct {
	Names []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("dataset is missing required columns: %s", strings.Join(e.Names, ", "))
}

// RowError attaches the failing row index and output column to a
// per-row evaluation failure.
type RowError struct {
	Row    int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Table is a generated dataset. Columns carries the emission order, since
// the row maps themselves are unordered.
type Table struct {
	Columns []string
	Rows    []types.Record
}

// Generate applies the template to every record of the dataset.
// Validation failures (undefined order columns, missing input columns)
// return before any row exists. The dataset is never mutated.
func Generate(dataset []types.Record, tpl *Template) (*Table, error) {
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	if err := checkRequired(dataset, tpl); err != nil {
		return nil, err
	}

	table := &Table{
		Columns: append([]string(nil), tpl.ColumnOrder...),
		Rows:    make([]types.Record, 0, len(dataset)),
	}

	for i, rec := range dataset {
		row := make(types.Record, len(tpl.ColumnOrder))
		for _, name := range tpl.ColumnOrder {
			value, err := applyRule(rec, tpl.Columns[name])
			if err != nil {
				return nil, &RowError{Row: i, Column: name, Err: err}
			}
			row[name] = value
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// checkRequired verifies every required input column exists in every
// record's schema. Presence is key presence; null values are handled by
// rule defaults, not here.
func checkRequired(dataset []types.Record, tpl *Template) error {
	required := tpl.requiredColumns()
	if len(required) == 0 {
		return nil
	}

	missing := make(map[string]struct{})
	for _, rec := range dataset {
		for _, col := range required {
			if _, ok := rec[col]; !ok {
				missing[col] = struct{}{}
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}

	names := make([]string, 0, len(missing))
	for col := range missing {
		names = append(names, col)
	}
	sort.Strings(names)
	return &MissingColumnsError{Names: names}
}

func applyRule(rec types.Record, rule ColumnRule) (any, error) {
	switch r := rule.(type) {
	case SourceRule:
		// Only null or absent triggers the default. Present values pass
		// through untouched, empty strings and nested structures included.
		value, ok := rec[r.Column]
		if !ok || value == nil {
			return r.Default, nil
		}
		return value, nil

	case ConstantRule:
		return r.Value, nil

	case ComputedRule:
		value, err := expr.Evaluate(r.Expr, rec, r.Default)
		if err != nil {
			if r.HasDefault {
				return r.Default, nil
			}
			return nil, err
		}
		return value, nil

	default:
		return nil, types.ErrUnknownColumnRule
	}
}
