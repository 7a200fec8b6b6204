package match

import "github.com/folio-labs/matchbook/internal/types"

// Stats accumulates batch-level match aggregates for one run. Value
// semantics: workers fold their own Stats and combine them with Merge
// (associative, commutative over the counts), so no shared counters and
// no locks are needed.
type Stats struct {
	RunID     types.RunID
	Total     int
	Matched   int
	Unmatched int
	ByTier    map[Tier]int

	// Lookup construction counters, carried into reporting
	SheetsSkipped int
	DuplicateKeys int
	RowsSkipped   int
}

// NewStats starts an empty accumulator with a fresh run ID.
func NewStats() Stats {
	return Stats{
		RunID:  types.NewRunID(),
		ByTier: make(map[Tier]int),
	}
}

// Observe folds one result into the accumulator.
func (s *Stats) Observe(res MatchResult) {
	s.Total++
	if res.Matched {
		s.Matched++
	} else {
		s.Unmatched++
	}
	if s.ByTier == nil {
		s.ByTier = make(map[Tier]int)
	}
	s.ByTier[res.MatchedBy]++
}

// ObserveReport folds lookup construction counters into the accumulator.
func (s *Stats) ObserveReport(report *BuildReport) {
	if report == nil {
		return
	}
	s.SheetsSkipped += report.SheetsSkipped
	s.DuplicateKeys += report.DuplicateKeys
	s.RowsSkipped += report.RowsSkipped
}

// Merge combines two accumulators. The receiver's run ID is kept; counts
// sum, so Merge is associative and commutative over any partition of the
// same result set.
func (s Stats) Merge(other Stats) Stats {
	out := s
	out.Total += other.Total
	out.Matched += other.Matched
	out.Unmatched += other.Unmatched
	out.SheetsSkipped += other.SheetsSkipped
	out.DuplicateKeys += other.DuplicateKeys
	out.RowsSkipped += other.RowsSkipped
	out.ByTier = make(map[Tier]int, len(s.ByTier)+len(other.ByTier))
	for tier, n := range s.ByTier {
		out.ByTier[tier] += n
	}
	for tier, n := range other.ByTier {
		out.ByTier[tier] += n
	}
	return out
}

// MatchRate returns the matched percentage in [0, 100].
func (s Stats) MatchRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return 100.0 * float64(s.Matched) / float64(s.Total)
}

// Collect folds a result slice into fresh Stats.
func Collect(results []MatchResult) Stats {
	stats := NewStats()
	for _, res := range results {
		stats.Observe(res)
	}
	return stats
}
