// Package newswatch polls for fresh headlines on watchlisted symbols
// and deduplicates them against a per-day ledger.
package newswatch

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/erictidmore/stock-screener/internal/catalyst"
)

// Event is one previously unseen headline on a watchlisted symbol.
type Event struct {
	Symbol      string            `json:"symbol"`
	Headline    catalyst.Headline `json:"headline"`
	Fingerprint string            `json:"fingerprint"`
	FirstSeenAt time.Time         `json:"first_seen_at"`
}

// Options parameterise the monitor.
type Options struct {
	PollInterval time.Duration
	Lookback     time.Duration
	MaxHeadlines int
	Now          func() time.Time
}

// Monitor drives the poll loop. Emission is handed to the sink, which
// must not block (the broadcast hub's sends are non-blocking by
// construction).
type Monitor struct {
	fetcher   catalyst.Fetcher
	watchlist func() []string
	sink      func(Event)
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time

	ledger *Ledger
}

// New constructs a monitor. watchlist is read on every tick so the
// monitor always follows the latest snapshot, never a stale copy.
func New(fetcher catalyst.Fetcher, watchlist func() []string, sink func(Event), opts Options, logger zerolog.Logger) *Monitor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.Lookback <= 0 {
		opts.Lookback = time.Hour
	}
	if opts.MaxHeadlines <= 0 {
		opts.MaxHeadlines = 10
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		fetcher:   fetcher,
		watchlist: watchlist,
		sink:      sink,
		opts:      opts,
		logger:    logger.With().Str("component", "newswatch").Logger(),
		now:       now,
		ledger:    NewLedger(),
	}
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll checks every watchlisted symbol once and emits events for
// headlines not yet in the ledger. Per-symbol failures are logged and
// skipped; they never abort the tick.
func (m *Monitor) Poll(ctx context.Context) []Event {
	symbols := m.watchlist()
	if len(symbols) == 0 {
		return nil
	}

	since := m.now().Add(-m.opts.Lookback)
	var emitted []Event

	for _, sym := range symbols {
		if ctx.Err() != nil {
			return emitted
		}

		headlines, err := m.fetcher.Headlines(ctx, sym, since, m.opts.MaxHeadlines)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", sym).Msg("headline poll failed")
			continue
		}

		for _, h := range headlines {
			fp := Fingerprint(sym, h.Text, h.PublishedAt)
			if !m.ledger.MarkSeen(fp, m.now()) {
				continue
			}
			ev := Event{Symbol: sym, Headline: h, Fingerprint: fp, FirstSeenAt: m.now()}
			emitted = append(emitted, ev)
			if m.sink != nil {
				m.sink(ev)
			}
			m.logger.Info().Str("symbol", sym).Str("headline", h.Text).Msg("breaking news")
		}
	}

	return emitted
}

// Reset clears the dedup ledger at the daily boundary.
func (m *Monitor) Reset() {
	m.ledger.Reset()
}

// Fingerprint derives a stable identity for a headline: symbol plus
// normalized text plus published timestamp.
func Fingerprint(symbol, text string, published time.Time) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	h := sha1.New()
	h.Write([]byte(strings.ToUpper(symbol)))
	h.Write([]byte("|"))
	h.Write([]byte(normalized))
	h.Write([]byte("|"))
	h.Write([]byte(published.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(h.Sum(nil))
}
