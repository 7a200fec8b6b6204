package match

import (
	"sort"
	"strings"

	"github.com/folio-labs/matchbook/internal/normalize"
	"github.com/folio-labs/matchbook/internal/types"
)

/*
 * Identifier extraction.
 *
 * Pulls up to MaxIdentifierCandidates lookup candidates from one OCR
 * record, in fixed priority order:
 *   1. mobile/service number - a "/"-delimited list yields the first
 *      number as the primary candidate and the concatenation of all
 *      numbers (delimiters removed) as a secondary candidate
 *   2. account/customer number
 *   3. customer reference
 * Every candidate is normalized before lookup; candidates that normalize
 * to "" are dropped.
 */

// Tier labels the identifier type that produced a match.
type Tier string

const (
	TierMobile    Tier = "mobile_number"
	TierAccount   Tier = "account_number"
	TierReference Tier = "customer_reference"
	TierFuzzy     Tier = "fuzzy_name"
	TierUnmatched Tier = "unmatched"
)

// Extractor selects which record fields feed each cascade tier.
type Extractor struct {
	MobileKeys    []string
	AccountKeys   []string
	ReferenceKeys []string
	NameKeys      []string // free-text person name for the fuzzy fallback
}

// DefaultExtractor covers the field names the OCR layer emits.
func DefaultExtractor() Extractor {
	return Extractor{
		MobileKeys:    []string{"mobile_number", "service_number", "msisdn"},
		AccountKeys:   []string{"account_number", "customer_number"},
		ReferenceKeys: []string{"customer_reference", "reference"},
		NameKeys:      []string{"colleague_name", "employee_name", "person_name"},
	}
}

// Candidate is one normalized identifier ready for lookup.
type Candidate struct {
	Tier       Tier
	Raw        string
	Normalized string
}

// Candidates extracts the record's lookup candidates in cascade order.
func (x Extractor) Candidates(rec types.Record) []Candidate {
	out := make([]Candidate, 0, types.MaxIdentifierCandidates)

	if raw := firstField(rec, x.MobileKeys); raw != "" {
		primary, combined := splitNumberList(raw)
		out = appendCandidate(out, TierMobile, primary)
		if combined != "" && combined != primary {
			out = appendCandidate(out, TierMobile, combined)
		}
	}
	if raw := firstField(rec, x.AccountKeys); raw != "" {
		out = appendCandidate(out, TierAccount, raw)
	}
	if raw := firstField(rec, x.ReferenceKeys); raw != "" {
		out = appendCandidate(out, TierReference, raw)
	}

	return out
}

// Name extracts the free-text person name used by the fuzzy fallback.
func (x Extractor) Name(rec types.Record) string {
	return firstField(rec, x.NameKeys)
}

// splitNumberList handles "/"-delimited service numbers.
// "91234567/98765432" yields primary "91234567" and combined
// "9123456798765432". A plain value yields itself and "".
func splitNumberList(raw string) (primary, combined string) {
	if !strings.Contains(raw, "/") {
		return strings.TrimSpace(raw), ""
	}
	var joined strings.Builder
	for _, p := range strings.Split(raw, "/") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if primary == "" {
			primary = p
		}
		joined.WriteString(p)
	}
	return primary, joined.String()
}

func appendCandidate(out []Candidate, tier Tier, raw string) []Candidate {
	norm := normalize.Identifier(raw)
	if norm == "" {
		return out
	}
	return append(out, Candidate{Tier: tier, Raw: raw, Normalized: norm})
}

// firstField returns the first non-empty value among keys, trying exact
// key names first and then case-insensitive matches, mirroring reference
// column resolution.
func firstField(rec types.Record, keys []string) string {
	for _, key := range keys {
		if v := rec.StringField(key); strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	// Sorted key iteration keeps the case-insensitive pass deterministic
	recKeys := make([]string, 0, len(rec))
	for k := range rec {
		recKeys = append(recKeys, k)
	}
	sort.Strings(recKeys)
	for _, key := range keys {
		for _, k := range recKeys {
			if strings.EqualFold(k, key) {
				if v := rec.StringField(k); strings.TrimSpace(v) != "" {
					return strings.TrimSpace(v)
				}
			}
		}
	}
	return ""
}
