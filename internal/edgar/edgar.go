// Package edgar looks up company filing jurisdictions from SEC EDGAR.
package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/erictidmore/stock-screener/internal/domicile"
	"github.com/erictidmore/stock-screener/internal/screener"
)

// ErrSymbolNotFound marks a ticker absent from the SEC company map.
// The chain treats it like any other lookup failure.
var ErrSymbolNotFound = errors.New("symbol not found in SEC ticker map")

// Options parameterise the EDGAR client.
type Options struct {
	SubmissionsBaseURL string
	TickerMapURL       string
	UserAgent          string
	Timeout            time.Duration
	RatePerSecond      float64
}

// Client fetches the ticker→CIK map and per-company submissions.
// Requests are rate limited per SEC fair-access guidance (~10/s).
type Client struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu          sync.Mutex
	tickerMap   map[string]int64
	mapFetched  time.Time
	mapValidity time.Duration
}

// NewClient constructs an EDGAR client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = 10
	}
	if opts.SubmissionsBaseURL == "" {
		opts.SubmissionsBaseURL = "https://data.sec.gov/submissions"
	}
	if opts.TickerMapURL == "" {
		opts.TickerMapURL = "https://www.sec.gov/files/company_tickers.json"
	}
	return &Client{
		opts:        opts,
		client:      &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Limit(rps), int(rps)),
		logger:      logger.With().Str("component", "edgar_client").Logger(),
		mapValidity: 24 * time.Hour,
	}
}

type submissionsResponse struct {
	Name                 string `json:"name"`
	StateOfIncorporation string `json:"stateOfIncorporation"`
	Addresses            struct {
		Business struct {
			StateOrCountry string `json:"stateOrCountry"`
		} `json:"business"`
	} `json:"addresses"`
}

// Domicile resolves the business address country and incorporation
// jurisdiction for symbol.
func (c *Client) Domicile(ctx context.Context, symbol string) (string, string, string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	cik, err := c.cik(ctx, sym)
	if err != nil {
		return "", "", "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", "", "", err
	}

	url := fmt.Sprintf("%s/CIK%010d.json", strings.TrimRight(c.opts.SubmissionsBaseURL, "/"), cik)
	var res submissionsResponse
	if err := c.getJSON(ctx, url, &res); err != nil {
		return "", "", "", fmt.Errorf("submissions for %s: %w", sym, err)
	}

	return res.Addresses.Business.StateOrCountry, res.StateOfIncorporation, res.Name, nil
}

func (c *Client) cik(ctx context.Context, sym string) (int64, error) {
	c.mu.Lock()
	fresh := c.tickerMap != nil && time.Since(c.mapFetched) < c.mapValidity
	if fresh {
		cik, ok := c.tickerMap[sym]
		c.mu.Unlock()
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, sym)
		}
		return cik, nil
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	// Numeric keys, e.g. {"0":{"cik_str":320193,"ticker":"AAPL",...}}.
	var raw map[string]struct {
		CIK    int64  `json:"cik_str"`
		Ticker string `json:"ticker"`
	}
	if err := c.getJSON(ctx, c.opts.TickerMapURL, &raw); err != nil {
		return 0, fmt.Errorf("ticker map: %w", err)
	}

	tickerMap := make(map[string]int64, len(raw))
	for _, entry := range raw {
		tickerMap[strings.ToUpper(entry.Ticker)] = entry.CIK
	}

	c.mu.Lock()
	c.tickerMap = tickerMap
	c.mapFetched = time.Now()
	c.mu.Unlock()

	c.logger.Debug().Int("tickers", len(tickerMap)).Msg("SEC ticker map refreshed")

	cik, ok := tickerMap[sym]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, sym)
	}
	return cik, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", screener.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", screener.ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", screener.ErrUpstreamRateLimited, url)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: sec responded %d", screener.ErrUpstreamUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("sec responded %d for %s", resp.StatusCode, url)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %w", screener.ErrMalformedResponse, err)
	}
	return nil
}

var _ domicile.Lookup = (*Client)(nil)
