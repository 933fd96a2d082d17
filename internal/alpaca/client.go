// Package alpaca provides thin clients for the Alpaca market-mover and
// news endpoints.
package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/erictidmore/stock-screener/internal/screener"
)

// Options parameterise the Alpaca data client.
type Options struct {
	BaseURL    string
	KeyID      string
	SecretKey  string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
}

// Client wraps the Alpaca data API with auth, bounded retries, and
// jittered backoff.
type Client struct {
	opts    Options
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient constructs an Alpaca data client.
func NewClient(opts Options, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://data.alpaca.markets"
	}

	return &Client{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "alpaca_client").Logger(),
	}
}

// getJSON fetches path with query and decodes the response into out.
// Network errors, 429s, and 5xx responses are retried with jittered
// backoff up to MaxRetries, then surfaced wrapped in the taxonomy
// sentinels.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return err
			}
		}

		retry, err := c.getOnce(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
		c.logger.Warn().Err(err).Int("attempt", attempt+1).Str("path", path).Msg("request failed, retrying")
	}

	if errors.Is(lastErr, screener.ErrUpstreamRateLimited) {
		// Attempts exhausted on 429s degrade to unavailable.
		return fmt.Errorf("%w: %w", screener.ErrUpstreamUnavailable, lastErr)
	}
	return lastErr
}

func (c *Client) getOnce(ctx context.Context, endpoint string, out any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("APCA-API-KEY-ID", c.opts.KeyID)
	req.Header.Set("APCA-API-SECRET-KEY", c.opts.SecretKey)
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return true, fmt.Errorf("%w: %w", screener.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("%w: read body: %w", screener.ErrUpstreamUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("%w: %s", screener.ErrUpstreamRateLimited, endpoint)
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("%w: %s", screener.ErrUpstreamUnavailable, parseAPIError(resp.StatusCode, payload))
	case resp.StatusCode != http.StatusOK:
		return false, parseAPIError(resp.StatusCode, payload)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("%w: %w", screener.ErrMalformedResponse, err)
	}
	return false, nil
}

func sleepBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt) * 500 * time.Millisecond
	delay += rand.N(delay/2 + time.Millisecond)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func parseAPIError(status int, payload []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("alpaca api error (%d): %s", status, apiErr.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("alpaca api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("alpaca api error (%d)", status)
}
