package screener

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	batch []Candidate
	err   error
	calls int
	top   int
}

func (s *stubFetcher) TopGainers(_ context.Context, top int) ([]Candidate, error) {
	s.calls++
	s.top = top
	return s.batch, s.err
}

func TestAggregatorScanIDsAreMonotonic(t *testing.T) {
	fetcher := &stubFetcher{batch: gainers()}
	chain := NewChain(defaultChainOptions(), &stubDomicile{}, newsFeed(), zerolog.Nop())
	agg := NewAggregator(fetcher, chain, 10, zerolog.Nop())

	require.Nil(t, agg.Latest())

	first, err := agg.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.ScanID)
	require.Equal(t, 10, fetcher.top)

	second, err := agg.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.ScanID)
	require.Same(t, second, agg.Latest())
}

func TestAggregatorScanIDSurvivesReset(t *testing.T) {
	fetcher := &stubFetcher{batch: gainers()}
	chain := NewChain(defaultChainOptions(), &stubDomicile{}, newsFeed(), zerolog.Nop())
	agg := NewAggregator(fetcher, chain, 10, zerolog.Nop())

	_, err := agg.Scan(context.Background())
	require.NoError(t, err)

	agg.Reset()
	require.Nil(t, agg.Latest())

	snap, err := agg.Scan(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), snap.ScanID, "reset clears the snapshot, not the sequence")
}

func TestAggregatorFetchErrorLeavesSnapshotInPlace(t *testing.T) {
	fetcher := &stubFetcher{batch: gainers()}
	chain := NewChain(defaultChainOptions(), &stubDomicile{}, newsFeed(), zerolog.Nop())
	agg := NewAggregator(fetcher, chain, 10, zerolog.Nop())

	published, err := agg.Scan(context.Background())
	require.NoError(t, err)

	fetcher.err = ErrUpstreamUnavailable
	_, err = agg.Scan(context.Background())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.Same(t, published, agg.Latest())
}

func TestAggregatorCancelledScanIsDiscarded(t *testing.T) {
	fetcher := &stubFetcher{batch: gainers()}
	chain := NewChain(defaultChainOptions(), &stubDomicile{}, newsFeed(), zerolog.Nop())
	agg := NewAggregator(fetcher, chain, 10, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.Scan(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, agg.Latest())
}

func TestSnapshotAccessors(t *testing.T) {
	snap := &WatchlistSnapshot{FinalWatchlist: []string{"BRLS", "PLBY"}}
	require.True(t, snap.Watchlisted("BRLS"))
	require.False(t, snap.Watchlisted("HUMA"))

	syms := snap.Symbols()
	syms[0] = "MUTATED"
	require.Equal(t, []string{"BRLS", "PLBY"}, snap.FinalWatchlist)

	var empty *WatchlistSnapshot
	require.False(t, empty.Watchlisted("BRLS"))
	require.Empty(t, empty.Symbols())
}
