// Package types provides domain models shared across Matchbook components.
//
// Zero-dependency design: types.go and errors.go use only the standard
// library so the core decision logic can be embedded without pulling in
// store or CLI dependencies. ID utilities in ids.go import uuid but are
// isolated for selective inclusion.
package types

import (
	"sort"
	"strconv"
)

// Record is one OCR-extracted record: a mapping from field name to value
// (string, number, bool, nil, nested map or list). Records are treated as
// immutable inputs; enrichment produces a new Record via Clone rather than
// mutating in place.
type Record map[string]any

// Clone returns a shallow copy of the record. Nested values are shared;
// callers only ever add or replace top-level keys on the copy.
func (r Record) Clone() Record {
	out := make(Record, len(r)+8)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Field returns the value for key and whether the key is present.
// Present-but-nil and absent are distinct outcomes.
func (r Record) Field(key string) (any, bool) {
	v, ok := r[key]
	return v, ok
}

// StringField returns the value for key rendered as text.
// Nil values and absent keys both yield "".
func (r Record) StringField(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return Text(v)
}

// Lookup resolves a path through nested records. Intermediate nil values
// or scalars terminate resolution with found=false.
func (r Record) Lookup(path ...string) (any, bool) {
	var current any = map[string]any(r)
	for _, seg := range path {
		var m map[string]any
		switch c := current.(type) {
		case map[string]any:
			m = c
		case Record:
			m = map[string]any(c)
		default:
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

// Text renders a scalar value as a string for identifier extraction and
// display. Floats that carry integral values print without a fraction so
// numeric OCR cells round-trip as identifiers ("91234567", not
// "9.1234567e+07").
func Text(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return ""
	}
}

// ReferenceRow is one already-parsed row of an external reference table.
// Keys are the sheet's column names as declared by the ingestion layer.
type ReferenceRow map[string]any

// Sheet is one reference table: a name (workbook sheet or file label) and
// its parsed rows. Column names are inferred from row keys.
type Sheet struct {
	Name string
	Rows []ReferenceRow
}

// Columns returns the union of column names across all rows, sorted within
// each row so the result is deterministic. Reference tables are usually
// rectangular, but ingestion occasionally drops empty cells, so the union
// is taken across every row rather than only the first.
func (s Sheet) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range s.Rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		cols = append(cols, keys...)
	}
	return cols
}

// LookupEntry is one reference-data row after column resolution, keyed in a
// lookup map by its normalized identifier.
type LookupEntry struct {
	ShopCode           string
	Department         string
	ServiceType        string
	OriginalIdentifier string
	SourceLabel        string
}

// Resource limits enforced by the engine.
const (
	// MaxExpressionLengthDefault bounds formula source length unless the
	// caller configures otherwise. Template formulas are single-line column
	// derivations; 500 chars accommodates the longest observed production
	// expression with headroom.
	MaxExpressionLengthDefault = 500

	// MaxIdentifierCandidates caps candidates tried per record in the
	// matching cascade: mobile primary, mobile combined, account, reference.
	MaxIdentifierCandidates = 4
)

// ShopCodeUnmatched is the terminal shop code for records no cascade tier
// or fuzzy fallback could place. Unmatched is a valid classification, not
// an error; it must flow through to output.
const ShopCodeUnmatched = "UNMATCHED"
