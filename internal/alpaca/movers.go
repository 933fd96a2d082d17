package alpaca

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erictidmore/stock-screener/internal/screener"
)

const moversPath = "/v1beta1/screener/stocks/movers"

type moversResponse struct {
	Gainers     []moverEntry `json:"gainers"`
	Losers      []moverEntry `json:"losers"`
	LastUpdated time.Time    `json:"last_updated"`
}

type moverEntry struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	PercentChange decimal.Decimal `json:"percent_change"`
	Change        decimal.Decimal `json:"change"`
}

// TopGainers pulls today's top gainers from the market-mover screener.
// Entries missing a symbol or price are discarded individually, never
// failing the batch.
func (c *Client) TopGainers(ctx context.Context, top int) ([]screener.Candidate, error) {
	query := url.Values{"top": {strconv.Itoa(top)}}

	var res moversResponse
	if err := c.getJSON(ctx, moversPath, query, &res); err != nil {
		return nil, fmt.Errorf("fetch market movers: %w", err)
	}

	observed := res.LastUpdated
	if observed.IsZero() {
		observed = time.Now().UTC()
	}

	candidates := make([]screener.Candidate, 0, len(res.Gainers))
	for _, g := range res.Gainers {
		sym := strings.ToUpper(strings.TrimSpace(g.Symbol))
		if sym == "" || g.Price.IsZero() {
			c.logger.Warn().Str("symbol", g.Symbol).Msg("discarding malformed mover entry")
			continue
		}
		candidates = append(candidates, screener.Candidate{
			Symbol:        sym,
			Price:         g.Price,
			PercentChange: g.PercentChange,
			DollarChange:  g.Change,
			ObservedAt:    observed,
		})
	}

	c.logger.Debug().Int("gainers", len(candidates)).Time("last_updated", observed).Msg("movers fetched")
	return candidates, nil
}

var _ screener.MoversFetcher = (*Client)(nil)
