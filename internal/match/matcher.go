package match

import (
	"github.com/folio-labs/matchbook/internal/normalize"
	"github.com/folio-labs/matchbook/internal/types"
)

/*
 * Matching cascade.
 *
 * Candidates are tried strictly in priority order: mobile number (primary,
 * then combined), account number, customer reference. The first candidate
 * present in the lookup map wins and its tier is recorded on the result.
 * If no exact candidate matches and a roster is configured, the record's
 * free-text name is fuzzy-matched against the roster; the best score is
 * accepted only at or above the threshold, ties broken by first-seen
 * roster order. Everything else is the UNMATCHED terminal classification,
 * which is a valid outcome and never an error.
 */

// MatchResult is the outcome of matching one record.
type MatchResult struct {
	Department           string
	ShopCode             string
	ServiceType          string
	Matched              bool
	MatchedBy            Tier
	MatchSource          string
	Confidence           float64
	ExtractedIdentifiers []string
}

// RosterEntry is one fuzzy-matchable reference person.
type RosterEntry struct {
	Name       string
	Department string
	ShopCode   string

	normalized string
}

// Roster is an ordered reference list for fuzzy name matching. Entry
// order is preserved: score ties resolve to the earliest entry.
type Roster struct {
	Label   string
	entries []RosterEntry
}

// NewRoster builds a roster from ordered entries. Entries whose names
// normalize to "" are dropped.
func NewRoster(label string, entries []RosterEntry) *Roster {
	r := &Roster{Label: label}
	for _, e := range entries {
		e.normalized = normalize.Name(e.Name)
		if e.normalized == "" {
			continue
		}
		r.entries = append(r.entries, e)
	}
	return r
}

// Len returns the number of usable roster entries.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// best scores query against every entry and returns the first entry with
// the strictly highest score.
func (r *Roster) best(query string, sim Similarity) (RosterEntry, float64) {
	var bestEntry RosterEntry
	bestScore := -1.0
	q := normalize.Name(query)
	for _, e := range r.entries {
		score := sim.Ratio(q, e.normalized)
		if score > bestScore {
			bestEntry, bestScore = e, score
		}
	}
	if bestScore < 0 {
		return RosterEntry{}, 0
	}
	return bestEntry, bestScore
}

// Matcher reconciles OCR records against a lookup map, with an optional
// fuzzy roster fallback. Stateless with respect to records: Match may run
// concurrently from any number of goroutines.
type Matcher struct {
	lookup    LookupMap
	extractor Extractor
	roster    *Roster
	sim       Similarity
	threshold float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithExtractor overrides the record field selection per tier.
func WithExtractor(x Extractor) Option {
	return func(m *Matcher) { m.extractor = x }
}

// WithRoster enables the fuzzy name fallback against the given roster.
func WithRoster(r *Roster) Option {
	return func(m *Matcher) { m.roster = r }
}

// WithSimilarity swaps the fuzzy scoring strategy.
func WithSimilarity(s Similarity) Option {
	return func(m *Matcher) { m.sim = s }
}

// WithThreshold sets the minimum accepted fuzzy score.
func WithThreshold(t float64) Option {
	return func(m *Matcher) { m.threshold = t }
}

// NewMatcher creates a matcher over the given lookup map.
// Defaults: DefaultExtractor, Gestalt similarity, DefaultFuzzyThreshold,
// no fuzzy roster.
func NewMatcher(lookup LookupMap, opts ...Option) *Matcher {
	m := &Matcher{
		lookup:    lookup,
		extractor: DefaultExtractor(),
		sim:       Gestalt{},
		threshold: DefaultFuzzyThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match classifies one record.
func (m *Matcher) Match(rec types.Record) MatchResult {
	candidates := m.extractor.Candidates(rec)
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Normalized)
	}

	for _, c := range candidates {
		entry, ok := m.lookup[c.Normalized]
		if !ok {
			continue
		}
		return MatchResult{
			Department:           entry.Department,
			ShopCode:             entry.ShopCode,
			ServiceType:          entry.ServiceType,
			Matched:              true,
			MatchedBy:            c.Tier,
			MatchSource:          entry.SourceLabel,
			Confidence:           1.0,
			ExtractedIdentifiers: ids,
		}
	}

	if m.roster.Len() > 0 {
		if name := m.extractor.Name(rec); name != "" {
			if entry, score, ok := m.MatchName(name); ok {
				return MatchResult{
					Department:           entry.Department,
					ShopCode:             entry.ShopCode,
					Matched:              true,
					MatchedBy:            TierFuzzy,
					MatchSource:          m.roster.Label,
					Confidence:           score,
					ExtractedIdentifiers: ids,
				}
			}
		}
	}

	return MatchResult{
		ShopCode:             types.ShopCodeUnmatched,
		MatchedBy:            TierUnmatched,
		MatchSource:          "",
		Confidence:           0.0,
		ExtractedIdentifiers: ids,
	}
}

// MatchName fuzzy-matches a free-text name against the roster.
// ok is false when the roster is empty or the best score is below the
// threshold.
func (m *Matcher) MatchName(name string) (RosterEntry, float64, bool) {
	if m.roster.Len() == 0 {
		return RosterEntry{}, 0, false
	}
	entry, score := m.roster.best(name, m.sim)
	if score < m.threshold {
		return RosterEntry{}, score, false
	}
	return entry, score, true
}

// Output field names carried on enriched records.
const (
	FieldDepartment  = "Department"
	FieldShopCode    = "ShopCode"
	FieldServiceType = "ServiceType"
	FieldMatchedBy   = "MatchedBy"
	FieldMatchSource = "MatchSource"
	FieldMatched     = "Matched"
	FieldIdentifiers = "ExtractedIdentifiers"
)

// Enrich returns a new record carrying the original fields plus the match
// attributes. The input record is never mutated.
func Enrich(rec types.Record, res MatchResult) types.Record {
	out := rec.Clone()
	out[FieldDepartment] = res.Department
	out[FieldShopCode] = res.ShopCode
	out[FieldServiceType] = res.ServiceType
	out[FieldMatchedBy] = string(res.MatchedBy)
	out[FieldMatchSource] = res.MatchSource
	out[FieldMatched] = res.Matched
	out[FieldIdentifiers] = res.ExtractedIdentifiers
	return out
}
