package alpaca

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/erictidmore/stock-screener/internal/catalyst"
)

const newsPath = "/v1beta1/news"

type newsResponse struct {
	News []newsEntry `json:"news"`
}

type newsEntry struct {
	Headline  string    `json:"headline"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	Symbols   []string  `json:"symbols"`
}

// Headlines fetches articles mentioning symbol published at or after
// since, newest first.
func (c *Client) Headlines(ctx context.Context, symbol string, since time.Time, limit int) ([]catalyst.Headline, error) {
	query := url.Values{
		"symbols": {symbol},
		"start":   {since.UTC().Format(time.RFC3339)},
		"limit":   {strconv.Itoa(limit)},
	}

	var res newsResponse
	if err := c.getJSON(ctx, newsPath, query, &res); err != nil {
		return nil, fmt.Errorf("fetch news for %s: %w", symbol, err)
	}

	headlines := make([]catalyst.Headline, 0, len(res.News))
	for _, n := range res.News {
		if n.Headline == "" {
			continue
		}
		headlines = append(headlines, catalyst.Headline{
			Symbol:      symbol,
			Text:        n.Headline,
			Source:      n.Source,
			PublishedAt: n.CreatedAt,
		})
	}
	return headlines, nil
}

var _ catalyst.Fetcher = (*Client)(nil)
