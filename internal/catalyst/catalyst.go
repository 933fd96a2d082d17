// Package catalyst decides whether recent headlines constitute a
// company-specific catalyst or just market-roundup noise.
package catalyst

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Classification of a symbol's news picture inside the lookback window.
type Classification string

const (
	Catalyst Classification = "catalyst"
	Roundup  Classification = "roundup"
	None     Classification = "none"
)

// Headline is one article as returned by the news source.
type Headline struct {
	Symbol      string    `json:"symbol"`
	Text        string    `json:"headline"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Record captures the classification of one considered headline.
type Record struct {
	Headline       Headline       `json:"headline"`
	Classification Classification `json:"classification"`
}

// Fetcher pulls headlines for a symbol published at or after since.
type Fetcher interface {
	Headlines(ctx context.Context, symbol string, since time.Time, limit int) ([]Headline, error)
}

// Options parameterise the checker.
type Options struct {
	Lookback       time.Duration
	MaxHeadlines   int
	RoundupPhrases []string
	Now            func() time.Time
}

// Result is the outcome of one check.
type Result struct {
	Class   Classification
	Top     Headline // most relevant company-specific headline, zero when Class != Catalyst
	Records []Record
}

// Checker classifies news for watch candidates.
type Checker struct {
	fetcher Fetcher
	opts    Options
	phrases []string
	logger  zerolog.Logger
	now     func() time.Time
}

// New constructs a checker.
func New(fetcher Fetcher, opts Options, logger zerolog.Logger) *Checker {
	if opts.Lookback <= 0 {
		opts.Lookback = 48 * time.Hour
	}
	if opts.MaxHeadlines <= 0 {
		opts.MaxHeadlines = 10
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	phrases := make([]string, 0, len(opts.RoundupPhrases))
	for _, p := range opts.RoundupPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Checker{
		fetcher: fetcher,
		opts:    opts,
		phrases: phrases,
		logger:  logger.With().Str("component", "catalyst").Logger(),
		now:     now,
	}
}

// Check fetches headlines in the lookback window and classifies them.
// Zero in-window headlines classify as None; headlines that all match
// the roundup heuristic classify as Roundup; the first headline with
// company-specific coverage makes the symbol a Catalyst.
func (c *Checker) Check(ctx context.Context, symbol string) (Result, error) {
	since := c.now().Add(-c.opts.Lookback)
	headlines, err := c.fetcher.Headlines(ctx, symbol, since, c.opts.MaxHeadlines)
	if err != nil {
		return Result{}, err
	}

	res := Result{Class: None, Records: make([]Record, 0, len(headlines))}
	for _, h := range headlines {
		class := Catalyst
		if c.IsRoundup(h.Text) {
			class = Roundup
		}
		res.Records = append(res.Records, Record{Headline: h, Classification: class})

		if class == Catalyst && res.Class != Catalyst {
			res.Class = Catalyst
			res.Top = h
		} else if res.Class == None {
			res.Class = Roundup
		}
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Str("class", string(res.Class)).
		Int("headlines", len(headlines)).
		Msg("news checked")

	return res, nil
}

// ClassifyNews implements the filter chain's checker contract.
func (c *Checker) ClassifyNews(ctx context.Context, symbol string) (string, string, error) {
	res, err := c.Check(ctx, symbol)
	if err != nil {
		return "", "", err
	}
	return string(res.Class), res.Top.Text, nil
}

// IsRoundup reports whether a headline matches the generic
// multi-symbol roundup heuristic.
func (c *Checker) IsRoundup(headline string) bool {
	lower := strings.ToLower(headline)
	for _, p := range c.phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
