package catalyst

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	headlines []Headline
	err       error
	since     time.Time
	limit     int
}

func (f *fakeFetcher) Headlines(_ context.Context, _ string, since time.Time, limit int) ([]Headline, error) {
	f.since = since
	f.limit = limit
	return f.headlines, f.err
}

func roundupPhrases() []string {
	return []string{"stocks moving in", "market movers", "biggest premarket", "top gainers"}
}

func TestCheckNoHeadlinesIsNone(t *testing.T) {
	c := New(&fakeFetcher{}, Options{RoundupPhrases: roundupPhrases()}, zerolog.Nop())

	res, err := c.Check(context.Background(), "LIMN")
	require.NoError(t, err)
	require.Equal(t, None, res.Class)
	require.Empty(t, res.Records)
}

func TestCheckAllRoundupIsRoundup(t *testing.T) {
	fetcher := &fakeFetcher{headlines: []Headline{
		{Symbol: "LIMN", Text: "Stocks Moving In Friday's Premarket Session"},
		{Symbol: "LIMN", Text: "Top Gainers To Watch This Week"},
	}}
	c := New(fetcher, Options{RoundupPhrases: roundupPhrases()}, zerolog.Nop())

	res, err := c.Check(context.Background(), "LIMN")
	require.NoError(t, err)
	require.Equal(t, Roundup, res.Class)
	require.Empty(t, res.Top.Text)
	for _, rec := range res.Records {
		require.Equal(t, Roundup, rec.Classification)
	}
}

func TestCheckFirstCompanySpecificHeadlineWins(t *testing.T) {
	fetcher := &fakeFetcher{headlines: []Headline{
		{Symbol: "HUMA", Text: "Market Movers: 5 Stocks To Watch"},
		{Symbol: "HUMA", Text: "Humacyte Receives FDA RMAT Designation"},
		{Symbol: "HUMA", Text: "Humacyte Prices Public Offering"},
	}}
	c := New(fetcher, Options{RoundupPhrases: roundupPhrases()}, zerolog.Nop())

	res, err := c.Check(context.Background(), "HUMA")
	require.NoError(t, err)
	require.Equal(t, Catalyst, res.Class)
	require.Equal(t, "Humacyte Receives FDA RMAT Designation", res.Top.Text)
	require.Len(t, res.Records, 3)
}

func TestCheckLookbackWindowAndLimit(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	fetcher := &fakeFetcher{}
	c := New(fetcher, Options{
		Lookback:       48 * time.Hour,
		MaxHeadlines:   10,
		RoundupPhrases: roundupPhrases(),
		Now:            func() time.Time { return now },
	}, zerolog.Nop())

	_, err := c.Check(context.Background(), "HUMA")
	require.NoError(t, err)
	require.Equal(t, now.Add(-48*time.Hour), fetcher.since)
	require.Equal(t, 10, fetcher.limit)
}

func TestCheckFetchErrorPropagates(t *testing.T) {
	fetchErr := errors.New("news feed down")
	c := New(&fakeFetcher{err: fetchErr}, Options{}, zerolog.Nop())

	_, _, err := c.ClassifyNews(context.Background(), "HUMA")
	require.ErrorIs(t, err, fetchErr)
}

func TestIsRoundupIsCaseInsensitive(t *testing.T) {
	c := New(&fakeFetcher{}, Options{RoundupPhrases: []string{"Biggest Premarket"}}, zerolog.Nop())

	require.True(t, c.IsRoundup("the BIGGEST premarket gainers today"))
	require.False(t, c.IsRoundup("Company announces merger agreement"))
}
