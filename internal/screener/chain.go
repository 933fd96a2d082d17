package screener

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DomicileClassifier resolves whether a symbol is domiciled in a
// restricted jurisdiction.
type DomicileClassifier interface {
	// Restricted reports the flag plus a short human-readable detail
	// such as "F4/F4". Lookup failures are returned as errors wrapped
	// with the taxonomy sentinels.
	Restricted(ctx context.Context, symbol string) (bool, string, error)
}

// CatalystChecker classifies recent news for a symbol.
type CatalystChecker interface {
	// ClassifyNews returns one of "catalyst", "roundup", "none" and
	// the most relevant headline when one exists.
	ClassifyNews(ctx context.Context, symbol string) (class string, headline string, err error)
}

// ChainOptions parameterise the filter chain.
type ChainOptions struct {
	MinPrice           decimal.Decimal
	MaxPrice           decimal.Decimal
	MinChangePct       decimal.Decimal
	DisabledStages     []StageName
	DomicileFailClosed bool
	CatalystHardMode   bool
}

// Chain applies the ordered exclusion stages to a batch of candidates.
type Chain struct {
	opts     ChainOptions
	disabled map[StageName]bool
	domicile DomicileClassifier
	catalyst CatalystChecker
	logger   zerolog.Logger
}

// NewChain constructs a filter chain.
func NewChain(opts ChainOptions, domicile DomicileClassifier, catalyst CatalystChecker, logger zerolog.Logger) *Chain {
	disabled := make(map[StageName]bool, len(opts.DisabledStages))
	for _, s := range opts.DisabledStages {
		disabled[s] = true
	}
	return &Chain{
		opts:     opts,
		disabled: disabled,
		domicile: domicile,
		catalyst: catalyst,
		logger:   logger.With().Str("component", "filter_chain").Logger(),
	}
}

// Enabled reports whether a stage participates in the chain.
func (c *Chain) Enabled(stage StageName) bool {
	if c.disabled[stage] {
		return false
	}
	switch stage {
	case StageDomicile:
		return c.domicile != nil
	case StageCatalyst:
		return c.catalyst != nil
	}
	return true
}

// Run evaluates every candidate against the enabled stages in order
// and returns the per-stage audit trail plus the surviving symbols.
// Candidates fail at the first failing enabled stage; later enabled
// stages are recorded as not evaluated.
func (c *Chain) Run(ctx context.Context, candidates []Candidate) ([]FilterOutcome, []string, error) {
	outcomes := make([]FilterOutcome, 0, len(candidates)*len(StageOrder()))
	watchlist := make([]string, 0, len(candidates))

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		failed := false
		for _, stage := range StageOrder() {
			if !c.Enabled(stage) {
				continue
			}
			if failed {
				outcomes = append(outcomes, FilterOutcome{
					Symbol: cand.Symbol,
					Stage:  stage,
					Reason: "not evaluated",
				})
				continue
			}

			out := c.evaluate(ctx, stage, cand)
			outcomes = append(outcomes, out)
			if !out.Passed {
				failed = true
				c.logger.Debug().
					Str("symbol", cand.Symbol).
					Str("stage", string(stage)).
					Str("reason", out.Reason).
					Msg("candidate excluded")
			}
		}

		if !failed {
			watchlist = append(watchlist, cand.Symbol)
		}
	}

	return outcomes, watchlist, nil
}

func (c *Chain) evaluate(ctx context.Context, stage StageName, cand Candidate) FilterOutcome {
	out := FilterOutcome{Symbol: cand.Symbol, Stage: stage, Evaluated: true}

	switch stage {
	case StagePriceChange:
		switch {
		case cand.Price.LessThan(c.opts.MinPrice):
			out.Reason = fmt.Sprintf("price %s below $%s", cand.Price, c.opts.MinPrice)
		case cand.Price.GreaterThan(c.opts.MaxPrice):
			out.Reason = fmt.Sprintf("price %s above $%s", cand.Price, c.opts.MaxPrice)
		case cand.PercentChange.LessThan(c.opts.MinChangePct):
			out.Reason = fmt.Sprintf("change %s%% below %s%%", cand.PercentChange, c.opts.MinChangePct)
		default:
			out.Passed = true
		}

	case StageSuffix:
		if class := ClassifySecurity(cand.Symbol); class != ClassCommon {
			out.Reason = fmt.Sprintf("%s security", class)
		} else {
			out.Passed = true
		}

	case StageDomicile:
		restricted, detail, err := c.domicile.Restricted(ctx, cand.Symbol)
		switch {
		case err != nil && c.opts.DomicileFailClosed:
			out.Reason = failureReason(err)
		case err != nil:
			out.Passed = true
			out.Reason = "lookup failed, fail-open"
		case restricted:
			out.Reason = fmt.Sprintf("restricted domicile %s", detail)
		default:
			out.Passed = true
		}

	case StageCatalyst:
		class, headline, err := c.catalyst.ClassifyNews(ctx, cand.Symbol)
		if err != nil {
			// News outages never hide candidates.
			out.Passed = true
			out.Reason = "news lookup failed"
			break
		}
		switch class {
		case "catalyst":
			out.Passed = true
			out.Reason = headline
		default:
			out.Passed = !c.opts.CatalystHardMode
			if class == "roundup" {
				out.Reason = "roundup coverage only"
			} else {
				out.Reason = "no company-specific news"
			}
		}
	}

	return out
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrUpstreamRateLimited):
		return "UpstreamRateLimited"
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	default:
		return "UpstreamUnavailable"
	}
}
