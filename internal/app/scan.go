package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/erictidmore/stock-screener/internal/screener"
)

// ScanOptions configure the one-shot scan command.
type ScanOptions struct {
	TopN       int
	HardMode   bool
	NoDomicile bool
	NoNews     bool
}

// Scan runs the full pipeline once and prints the audit trail and the
// final watchlist to stdout.
func (a *App) Scan(ctx context.Context, opts ScanOptions) error {
	ctx, cancel := context.WithTimeout(ctx, a.Config.Screener.ScanTimeout)
	defer cancel()

	pipe := a.buildPipeline(opts)

	snap, err := pipe.aggregator.Scan(ctx)
	if err != nil {
		return err
	}

	printSnapshot(snap)
	return nil
}

func printSnapshot(snap *screener.WatchlistSnapshot) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "\nscan %d, %d raw candidates\n\n", snap.ScanID, len(snap.RawCandidates))
	fmt.Fprintln(w, "#\tSYMBOL\tPRICE\tCHANGE%\tCHANGE$\tRESULT")

	outcomes := outcomesBySymbol(snap)
	for i, c := range snap.RawCandidates {
		fmt.Fprintf(w, "%d\t%s\t$%s\t%s%%\t$%s\t%s\n",
			i+1, c.Symbol,
			c.Price.StringFixed(2),
			c.PercentChange.StringFixed(1),
			c.DollarChange.StringFixed(2),
			summarize(outcomes[c.Symbol], snap.Watchlisted(c.Symbol)))
	}

	fmt.Fprintf(w, "\nwatchlist (%d): %s\n\n", len(snap.FinalWatchlist), strings.Join(snap.FinalWatchlist, ", "))
	_ = w.Flush()
}

func outcomesBySymbol(snap *screener.WatchlistSnapshot) map[string][]screener.FilterOutcome {
	m := make(map[string][]screener.FilterOutcome, len(snap.RawCandidates))
	for _, o := range snap.Outcomes {
		m[o.Symbol] = append(m[o.Symbol], o)
	}
	return m
}

func summarize(outcomes []screener.FilterOutcome, pass bool) string {
	if pass {
		for _, o := range outcomes {
			// Surface the catalyst annotation even for survivors.
			if o.Stage == screener.StageCatalyst && o.Reason != "" {
				return "PASS: " + o.Reason
			}
		}
		return "PASS"
	}
	for _, o := range outcomes {
		if o.Evaluated && !o.Passed {
			return fmt.Sprintf("FAIL %s: %s", o.Stage, o.Reason)
		}
	}
	return "FAIL"
}
