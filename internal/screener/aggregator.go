package screener

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// MoversFetcher pulls the current top gainers from the market-mover
// source.
type MoversFetcher interface {
	TopGainers(ctx context.Context, top int) ([]Candidate, error)
}

// Aggregator runs the filter chain over fetched batches and publishes
// immutable snapshots. Publication is atomic: Latest either returns a
// fully evaluated snapshot or the previous one, never a partial.
type Aggregator struct {
	fetcher MoversFetcher
	chain   *Chain
	topN    int
	logger  zerolog.Logger

	scanSeq atomic.Uint64

	mu     sync.RWMutex
	latest *WatchlistSnapshot
}

// NewAggregator constructs the watchlist aggregator.
func NewAggregator(fetcher MoversFetcher, chain *Chain, topN int, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		chain:   chain,
		topN:    topN,
		logger:  logger.With().Str("component", "aggregator").Logger(),
	}
}

// Scan pulls up to topN candidates, runs the chain, and publishes the
// resulting snapshot. A cancelled context discards partial results and
// leaves the previously published snapshot in place.
func (a *Aggregator) Scan(ctx context.Context) (*WatchlistSnapshot, error) {
	candidates, err := a.fetcher.TopGainers(ctx, a.topN)
	if err != nil {
		return nil, fmt.Errorf("fetch top gainers: %w", err)
	}

	outcomes, watchlist, err := a.chain.Run(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("run filter chain: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &WatchlistSnapshot{
		ScanID:         a.scanSeq.Add(1),
		GeneratedAt:    time.Now().UTC(),
		RawCandidates:  candidates,
		Outcomes:       outcomes,
		FinalWatchlist: watchlist,
	}

	a.mu.Lock()
	a.latest = snap
	a.mu.Unlock()

	a.logger.Info().
		Uint64("scan_id", snap.ScanID).
		Int("raw", len(candidates)).
		Int("watchlist", len(watchlist)).
		Msg("scan complete")

	return snap, nil
}

// Latest returns the most recently published snapshot, or nil before
// the first scan of the day.
func (a *Aggregator) Latest() *WatchlistSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// Reset drops the published snapshot at the daily boundary.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.latest = nil
	a.mu.Unlock()
}
