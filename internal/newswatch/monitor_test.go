package newswatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/erictidmore/stock-screener/internal/catalyst"
)

type fakeFetcher struct {
	headlines map[string][]catalyst.Headline
	failing   map[string]error
	calls     int
}

func (f *fakeFetcher) Headlines(_ context.Context, symbol string, _ time.Time, _ int) ([]catalyst.Headline, error) {
	f.calls++
	if err := f.failing[symbol]; err != nil {
		return nil, err
	}
	return f.headlines[symbol], nil
}

func staticWatchlist(symbols ...string) func() []string {
	return func() []string { return symbols }
}

func TestPollEmitsEachHeadlineOnce(t *testing.T) {
	published := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	fetcher := &fakeFetcher{headlines: map[string][]catalyst.Headline{
		"HUMA": {{Symbol: "HUMA", Text: "Humacyte Receives FDA RMAT Designation", PublishedAt: published}},
	}}

	var sunk []Event
	m := New(fetcher, staticWatchlist("HUMA"), func(ev Event) { sunk = append(sunk, ev) }, Options{}, zerolog.Nop())

	first := m.Poll(context.Background())
	require.Len(t, first, 1)
	require.Equal(t, "HUMA", first[0].Symbol)
	require.NotEmpty(t, first[0].Fingerprint)

	// Same headline on the next three ticks stays silent.
	for i := 0; i < 3; i++ {
		require.Empty(t, m.Poll(context.Background()))
	}
	require.Len(t, sunk, 1)
}

func TestPollResetReplaysTheDay(t *testing.T) {
	published := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	fetcher := &fakeFetcher{headlines: map[string][]catalyst.Headline{
		"HUMA": {{Symbol: "HUMA", Text: "Humacyte Receives FDA RMAT Designation", PublishedAt: published}},
	}}
	m := New(fetcher, staticWatchlist("HUMA"), nil, Options{}, zerolog.Nop())

	require.Len(t, m.Poll(context.Background()), 1)
	m.Reset()
	require.Len(t, m.Poll(context.Background()), 1, "a fresh ledger forgets yesterday's fingerprints")
}

func TestPollSkipsFailingSymbols(t *testing.T) {
	published := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	fetcher := &fakeFetcher{
		headlines: map[string][]catalyst.Headline{
			"PLBY": {{Symbol: "PLBY", Text: "PLBY Group Reports Record Quarter", PublishedAt: published}},
		},
		failing: map[string]error{"BRLS": errors.New("feed down")},
	}
	m := New(fetcher, staticWatchlist("BRLS", "PLBY"), nil, Options{}, zerolog.Nop())

	events := m.Poll(context.Background())
	require.Len(t, events, 1)
	require.Equal(t, "PLBY", events[0].Symbol)
}

func TestPollEmptyWatchlistSkipsFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	m := New(fetcher, staticWatchlist(), nil, Options{}, zerolog.Nop())

	require.Empty(t, m.Poll(context.Background()))
	require.Zero(t, fetcher.calls)
}

func TestPollFollowsLiveWatchlist(t *testing.T) {
	published := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	fetcher := &fakeFetcher{headlines: map[string][]catalyst.Headline{
		"HUMA": {{Symbol: "HUMA", Text: "Humacyte Receives FDA RMAT Designation", PublishedAt: published}},
	}}

	symbols := []string{}
	m := New(fetcher, func() []string { return symbols }, nil, Options{}, zerolog.Nop())

	require.Empty(t, m.Poll(context.Background()))

	symbols = []string{"HUMA"}
	require.Len(t, m.Poll(context.Background()), 1)
}

func TestFingerprintNormalisation(t *testing.T) {
	published := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

	base := Fingerprint("HUMA", "Humacyte Receives FDA RMAT Designation", published)
	require.Equal(t, base, Fingerprint("huma", "  humacyte   receives FDA rmat designation ", published))
	require.NotEqual(t, base, Fingerprint("HUMA", "Humacyte Prices Public Offering", published))
	require.NotEqual(t, base, Fingerprint("HUMA", "Humacyte Receives FDA RMAT Designation", published.Add(time.Minute)))
	require.NotEqual(t, base, Fingerprint("PLBY", "Humacyte Receives FDA RMAT Designation", published))
}

func TestLedgerMarkSeen(t *testing.T) {
	l := NewLedger()
	now := time.Now()

	require.True(t, l.MarkSeen("fp-1", now))
	require.False(t, l.MarkSeen("fp-1", now))
	require.True(t, l.MarkSeen("fp-2", now))
	require.Equal(t, 2, l.Len())

	l.Reset()
	require.Zero(t, l.Len())
	require.True(t, l.MarkSeen("fp-1", now))
}
