package match

import (
	"context"

	"github.com/folio-labs/matchbook/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds batch parallelism when the caller does not
// configure a worker count.
const DefaultWorkers = 4

// Run matches a batch of records in parallel. Records are matched
// independently with no ordering guarantee between workers, but results
// are assembled by original index so output order always mirrors input
// order. Statistics are folded after the parallel phase; no shared
// counters are touched during matching.
//
// The only error source is context cancellation: matching itself is a
// pure computation and unmatched records are valid results, not errors.
func Run(ctx context.Context, m *Matcher, records []types.Record, workers int) ([]MatchResult, Stats, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]MatchResult, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range records {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Each goroutine writes only its own slot
			results[i] = m.Match(records[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	return results, Collect(results), nil
}

// RunEnriched matches a batch and returns enriched records alongside the
// raw results, preserving input order.
func RunEnriched(ctx context.Context, m *Matcher, records []types.Record, workers int) ([]types.Record, Stats, error) {
	results, stats, err := Run(ctx, m, records, workers)
	if err != nil {
		return nil, Stats{}, err
	}
	enriched := make([]types.Record, len(records))
	for i, rec := range records {
		enriched[i] = Enrich(rec, results[i])
	}
	return enriched, stats, nil
}
