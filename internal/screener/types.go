package screener

import (
	"time"

	"github.com/shopspring/decimal"
)

// StageName identifies one predicate in the filter chain.
type StageName string

const (
	StagePriceChange StageName = "price_change"
	StageSuffix      StageName = "suffix"
	StageDomicile    StageName = "domicile"
	StageCatalyst    StageName = "catalyst"
)

// StageOrder returns the fixed evaluation order of the chain.
func StageOrder() []StageName {
	return []StageName{StagePriceChange, StageSuffix, StageDomicile, StageCatalyst}
}

// Candidate is one raw market mover as pulled from the screener feed.
// Immutable once created; a new scan produces fresh candidates.
type Candidate struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	PercentChange decimal.Decimal `json:"percent_change"`
	DollarChange  decimal.Decimal `json:"dollar_change"`
	ObservedAt    time.Time       `json:"observed_at"`
}

// FilterOutcome records how one enabled stage judged one candidate.
// Stages downstream of the first failure are recorded with
// Evaluated=false so the audit trail distinguishes "failed" from
// "never reached". Disabled stages produce no outcome at all.
type FilterOutcome struct {
	Symbol    string    `json:"symbol"`
	Stage     StageName `json:"stage"`
	Evaluated bool      `json:"evaluated"`
	Passed    bool      `json:"passed"`
	Reason    string    `json:"reason,omitempty"`
}

// WatchlistSnapshot is one immutable, fully evaluated pipeline result.
type WatchlistSnapshot struct {
	ScanID         uint64          `json:"scan_id"`
	GeneratedAt    time.Time       `json:"generated_at"`
	RawCandidates  []Candidate     `json:"raw_candidates"`
	Outcomes       []FilterOutcome `json:"outcomes"`
	FinalWatchlist []string        `json:"final_watchlist"`
}

// Watchlisted reports whether symbol survived every enabled stage.
func (s *WatchlistSnapshot) Watchlisted(symbol string) bool {
	if s == nil {
		return false
	}
	for _, sym := range s.FinalWatchlist {
		if sym == symbol {
			return true
		}
	}
	return false
}

// Symbols returns the watchlist as a defensive copy for pollers that
// outlive the snapshot they read it from.
func (s *WatchlistSnapshot) Symbols() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.FinalWatchlist))
	copy(out, s.FinalWatchlist)
	return out
}
