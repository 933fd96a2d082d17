// Package domicile flags symbols whose business address and
// incorporation jurisdiction both fall in a restricted set, using
// cached filings lookups.
package domicile

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Record is one cached filings lookup. Read-only once fetched; a
// refresh after the TTL creates a new record.
type Record struct {
	Symbol          string    `json:"symbol"`
	BusinessCountry string    `json:"business_country"`
	Incorporation   string    `json:"incorporation"`
	CompanyName     string    `json:"company_name,omitempty"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Lookup resolves a symbol's filing jurisdictions from the upstream
// filings source.
type Lookup interface {
	Domicile(ctx context.Context, symbol string) (businessCountry, incorporation, companyName string, err error)
}

// Options parameterise the classifier.
type Options struct {
	TTL             time.Duration
	RestrictedCodes []string
	CacheFile       string
	Now             func() time.Time
}

// Classifier memoises filings lookups and applies the restricted-set
// rule. At most one lookup per symbol is in flight at any time.
type Classifier struct {
	lookup     Lookup
	opts       Options
	restricted map[string]struct{}
	logger     zerolog.Logger
	now        func() time.Time

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]Record
}

// New constructs a classifier, loading any persisted cache file.
func New(lookup Lookup, opts Options, logger zerolog.Logger) *Classifier {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	restricted := make(map[string]struct{}, len(opts.RestrictedCodes))
	for _, code := range opts.RestrictedCodes {
		restricted[strings.ToUpper(code)] = struct{}{}
	}

	c := &Classifier{
		lookup:     lookup,
		opts:       opts,
		restricted: restricted,
		logger:     logger.With().Str("component", "domicile").Logger(),
		now:        now,
		cache:      make(map[string]Record),
	}
	c.loadCacheFile()
	return c
}

// Classify returns the domicile record for symbol, from cache when
// fresh. Concurrent callers for the same symbol share one lookup.
func (c *Classifier) Classify(ctx context.Context, symbol string) (Record, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	if rec, ok := c.fresh(sym); ok {
		return rec, nil
	}

	v, err, _ := c.group.Do(sym, func() (any, error) {
		if rec, ok := c.fresh(sym); ok {
			return rec, nil
		}

		business, incorporation, name, err := c.lookup.Domicile(ctx, sym)
		if err != nil {
			return Record{}, err
		}

		rec := Record{
			Symbol:          sym,
			BusinessCountry: strings.ToUpper(business),
			Incorporation:   strings.ToUpper(incorporation),
			CompanyName:     name,
			FetchedAt:       c.now(),
		}

		c.mu.Lock()
		c.cache[sym] = rec
		c.mu.Unlock()
		c.saveCacheFile()

		return rec, nil
	})
	if err != nil {
		return Record{}, err
	}
	return v.(Record), nil
}

// Restricted implements the filter chain's classifier contract. A
// symbol is flagged only when both jurisdictions are restricted.
func (c *Classifier) Restricted(ctx context.Context, symbol string) (bool, string, error) {
	rec, err := c.Classify(ctx, symbol)
	if err != nil {
		return false, "", err
	}
	return c.IsRestricted(rec), rec.BusinessCountry + "/" + rec.Incorporation, nil
}

// IsRestricted applies the AND rule over both jurisdictions.
func (c *Classifier) IsRestricted(rec Record) bool {
	_, biz := c.restricted[rec.BusinessCountry]
	_, inc := c.restricted[rec.Incorporation]
	return biz && inc
}

func (c *Classifier) fresh(sym string) (Record, bool) {
	c.mu.RLock()
	rec, ok := c.cache[sym]
	c.mu.RUnlock()
	if !ok || c.now().Sub(rec.FetchedAt) > c.opts.TTL {
		return Record{}, false
	}
	return rec, true
}

// Refresh discards the cached record for symbol so the next Classify
// issues a new lookup.
func (c *Classifier) Refresh(symbol string) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	c.mu.Lock()
	delete(c.cache, sym)
	c.mu.Unlock()
}

func (c *Classifier) loadCacheFile() {
	if c.opts.CacheFile == "" {
		return
	}
	raw, err := os.ReadFile(c.opts.CacheFile)
	if err != nil {
		return
	}
	var cache map[string]Record
	if err := json.Unmarshal(raw, &cache); err != nil {
		c.logger.Warn().Err(err).Str("file", c.opts.CacheFile).Msg("discarding unreadable domicile cache")
		return
	}
	c.mu.Lock()
	c.cache = cache
	c.mu.Unlock()
	c.logger.Debug().Int("entries", len(cache)).Msg("domicile cache loaded")
}

func (c *Classifier) saveCacheFile() {
	if c.opts.CacheFile == "" {
		return
	}
	c.mu.RLock()
	raw, err := json.MarshalIndent(c.cache, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return
	}
	if err := os.WriteFile(c.opts.CacheFile, raw, 0o644); err != nil {
		c.logger.Warn().Err(err).Str("file", c.opts.CacheFile).Msg("failed to persist domicile cache")
	}
}
