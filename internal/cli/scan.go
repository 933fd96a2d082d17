package cli

import (
	"github.com/spf13/cobra"

	"github.com/erictidmore/stock-screener/internal/app"
)

var scanOpts app.ScanOptions

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run the filter pipeline once and print the watchlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scan(cmd.Context(), scanOpts)
	},
}

func init() {
	scanCmd.Flags().IntVar(&scanOpts.TopN, "top", 0, "Number of top movers to pull (default from config)")
	scanCmd.Flags().BoolVar(&scanOpts.HardMode, "news-hard", false, "Remove symbols without a news catalyst instead of annotating them")
	scanCmd.Flags().BoolVar(&scanOpts.NoDomicile, "no-domicile-filter", false, "Skip the restricted-domicile lookup")
	scanCmd.Flags().BoolVar(&scanOpts.NoNews, "no-news", false, "Skip the news catalyst check entirely")
}
