package domicile

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	mu      sync.Mutex
	calls   atomic.Int64
	delay   time.Duration
	records map[string][3]string // symbol -> business, incorporation, name
	err     error
}

func (f *fakeLookup) Domicile(_ context.Context, symbol string) (string, string, string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", "", "", f.err
	}
	f.mu.Lock()
	rec := f.records[symbol]
	f.mu.Unlock()
	return rec[0], rec[1], rec[2], nil
}

func restrictedCodes() []string {
	return []string{"F4", "G6", "E9", "K6"}
}

func TestClassifierANDRule(t *testing.T) {
	lookup := &fakeLookup{records: map[string][3]string{
		"CHSN": {"F4", "F4", "Chanson International"},
		"BNED": {"F4", "DE", "Barnes & Noble Education"},
		"ACME": {"NY", "F4", "Acme Corp"},
		"HUMA": {"MD", "DE", "Humacyte"},
	}}
	c := New(lookup, Options{RestrictedCodes: restrictedCodes()}, zerolog.Nop())

	cases := []struct {
		symbol string
		want   bool
	}{
		{"CHSN", true},  // both jurisdictions restricted
		{"BNED", false}, // restricted business address, domestic incorporation
		{"ACME", false}, // domestic business address, restricted incorporation
		{"HUMA", false},
	}
	for _, tc := range cases {
		restricted, detail, err := c.Restricted(context.Background(), tc.symbol)
		require.NoError(t, err)
		require.Equal(t, tc.want, restricted, "%s (%s)", tc.symbol, detail)
	}
}

func TestClassifierCachesWithinTTL(t *testing.T) {
	current := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	lookup := &fakeLookup{records: map[string][3]string{"HUMA": {"MD", "DE", "Humacyte"}}}
	c := New(lookup, Options{
		TTL:             24 * time.Hour,
		RestrictedCodes: restrictedCodes(),
		Now:             func() time.Time { return current },
	}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		_, err := c.Classify(context.Background(), "HUMA")
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, lookup.calls.Load())

	current = current.Add(25 * time.Hour)
	_, err := c.Classify(context.Background(), "HUMA")
	require.NoError(t, err)
	require.EqualValues(t, 2, lookup.calls.Load(), "stale record triggers one refetch")
}

func TestClassifierCoalescesConcurrentLookups(t *testing.T) {
	lookup := &fakeLookup{
		delay:   50 * time.Millisecond,
		records: map[string][3]string{"HUMA": {"MD", "DE", "Humacyte"}},
	}
	c := New(lookup, Options{RestrictedCodes: restrictedCodes()}, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Classify(context.Background(), "HUMA")
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, lookup.calls.Load(), "concurrent callers must share one upstream lookup")
}

func TestClassifierErrorsAreNotCached(t *testing.T) {
	lookup := &fakeLookup{err: context.DeadlineExceeded}
	c := New(lookup, Options{RestrictedCodes: restrictedCodes()}, zerolog.Nop())

	_, err := c.Classify(context.Background(), "HUMA")
	require.Error(t, err)

	lookup.err = nil
	lookup.mu.Lock()
	lookup.records = map[string][3]string{"HUMA": {"MD", "DE", "Humacyte"}}
	lookup.mu.Unlock()

	rec, err := c.Classify(context.Background(), "HUMA")
	require.NoError(t, err)
	require.Equal(t, "MD", rec.BusinessCountry)
	require.EqualValues(t, 2, lookup.calls.Load())
}

func TestClassifierRefreshForcesRefetch(t *testing.T) {
	lookup := &fakeLookup{records: map[string][3]string{"HUMA": {"MD", "DE", "Humacyte"}}}
	c := New(lookup, Options{RestrictedCodes: restrictedCodes()}, zerolog.Nop())

	_, err := c.Classify(context.Background(), "HUMA")
	require.NoError(t, err)

	c.Refresh("huma")
	_, err = c.Classify(context.Background(), "HUMA")
	require.NoError(t, err)
	require.EqualValues(t, 2, lookup.calls.Load())
}

func TestClassifierPersistsAndReloadsCache(t *testing.T) {
	cacheFile := filepath.Join(t.TempDir(), "domicile.json")
	lookup := &fakeLookup{records: map[string][3]string{"CHSN": {"F4", "F4", "Chanson International"}}}

	c := New(lookup, Options{RestrictedCodes: restrictedCodes(), CacheFile: cacheFile}, zerolog.Nop())
	rec, err := c.Classify(context.Background(), "CHSN")
	require.NoError(t, err)
	require.True(t, c.IsRestricted(rec))

	// A fresh classifier over the same file serves from disk.
	reloaded := New(&fakeLookup{}, Options{RestrictedCodes: restrictedCodes(), CacheFile: cacheFile}, zerolog.Nop())
	rec, err = reloaded.Classify(context.Background(), "CHSN")
	require.NoError(t, err)
	require.Equal(t, "F4", rec.Incorporation)
	require.True(t, reloaded.IsRestricted(rec))
}

func TestClassifierNormalisesCase(t *testing.T) {
	lookup := &fakeLookup{records: map[string][3]string{"CHSN": {"f4", "f4", "Chanson International"}}}
	c := New(lookup, Options{RestrictedCodes: []string{"f4"}}, zerolog.Nop())

	rec, err := c.Classify(context.Background(), " chsn ")
	require.NoError(t, err)
	require.Equal(t, "CHSN", rec.Symbol)
	require.True(t, c.IsRestricted(rec))
}
