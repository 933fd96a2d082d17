package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/erictidmore/stock-screener/internal/alpaca"
	"github.com/erictidmore/stock-screener/internal/autopilot"
	"github.com/erictidmore/stock-screener/internal/broadcast"
	"github.com/erictidmore/stock-screener/internal/catalyst"
	"github.com/erictidmore/stock-screener/internal/config"
	"github.com/erictidmore/stock-screener/internal/dashboard"
	"github.com/erictidmore/stock-screener/internal/domicile"
	"github.com/erictidmore/stock-screener/internal/edgar"
	"github.com/erictidmore/stock-screener/internal/logging"
	"github.com/erictidmore/stock-screener/internal/newswatch"
	"github.com/erictidmore/stock-screener/internal/screener"
)

// App aggregates configuration and shared dependencies for the CLI
// commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Ring   *logging.Ring
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger, ring *logging.Ring) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Ring: ring}
}

// pipeline bundles the pieces every command needs.
type pipeline struct {
	alpaca     *alpaca.Client
	classifier *domicile.Classifier
	checker    *catalyst.Checker
	aggregator *screener.Aggregator
}

func (a *App) buildPipeline(opts ScanOptions) *pipeline {
	cfg := a.Config

	client := alpaca.NewClient(alpaca.Options{
		BaseURL:    cfg.Alpaca.DataBaseURL,
		KeyID:      cfg.Alpaca.KeyID,
		SecretKey:  cfg.Alpaca.SecretKey,
		UserAgent:  cfg.Alpaca.UserAgent,
		Timeout:    cfg.Alpaca.RequestTimeout,
		MaxRetries: cfg.Alpaca.MaxRetries,
	}, a.Logger)

	sec := edgar.NewClient(edgar.Options{
		SubmissionsBaseURL: cfg.Edgar.SubmissionsBaseURL,
		TickerMapURL:       cfg.Edgar.TickerMapURL,
		UserAgent:          cfg.Edgar.UserAgent,
		Timeout:            cfg.Edgar.RequestTimeout,
		RatePerSecond:      cfg.Edgar.RatePerSecond,
	}, a.Logger)

	classifier := domicile.New(sec, domicile.Options{
		TTL:             cfg.Edgar.CacheTTL,
		RestrictedCodes: cfg.Edgar.RestrictedCodes,
		CacheFile:       cfg.Edgar.CacheFile,
	}, a.Logger)

	checker := catalyst.New(client, catalyst.Options{
		Lookback:       cfg.News.Lookback,
		MaxHeadlines:   cfg.News.MaxHeadlines,
		RoundupPhrases: cfg.News.RoundupPhrases,
	}, a.Logger)

	disabled := make([]screener.StageName, 0, len(cfg.Screener.DisabledStages))
	for _, s := range cfg.Screener.DisabledStages {
		disabled = append(disabled, screener.StageName(s))
	}
	if opts.NoDomicile {
		disabled = append(disabled, screener.StageDomicile)
	}
	if opts.NoNews {
		disabled = append(disabled, screener.StageCatalyst)
	}

	chain := screener.NewChain(screener.ChainOptions{
		MinPrice:           decimal.NewFromFloat(cfg.Screener.MinPrice),
		MaxPrice:           decimal.NewFromFloat(cfg.Screener.MaxPrice),
		MinChangePct:       decimal.NewFromFloat(cfg.Screener.MinChangePct),
		DisabledStages:     disabled,
		DomicileFailClosed: cfg.Screener.DomicileFailClosed,
		CatalystHardMode:   cfg.Screener.CatalystHardMode || opts.HardMode,
	}, classifier, checker, a.Logger)

	topN := cfg.Screener.TopN
	if opts.TopN > 0 {
		topN = opts.TopN
	}

	return &pipeline{
		alpaca:     client,
		classifier: classifier,
		checker:    checker,
		aggregator: screener.NewAggregator(client, chain, topN, a.Logger),
	}
}

// Run executes the long-running dashboard service: autopilot schedule,
// breaking-news monitor, state broadcaster, and HTTP server.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := a.Config
	pipe := a.buildPipeline(ScanOptions{})

	var hub *broadcast.Hub

	scan := func(ctx context.Context) error {
		if _, err := pipe.aggregator.Scan(ctx); err != nil {
			return err
		}
		hub.PublishSnapshot()
		return nil
	}

	loc, err := time.LoadLocation(cfg.Autopilot.Timezone)
	if err != nil {
		return err
	}

	monitor := newswatch.New(
		pipe.alpaca,
		func() []string { return pipe.aggregator.Latest().Symbols() },
		func(ev newswatch.Event) { hub.PublishEvent(ev) },
		newswatch.Options{
			PollInterval: cfg.News.PollInterval,
			Lookback:     cfg.News.Lookback,
			MaxHeadlines: cfg.News.MaxHeadlines,
		}, a.Logger)

	reset := func() {
		pipe.aggregator.Reset()
		monitor.Reset()
		hub.PublishSnapshot()
	}

	sched := autopilot.New(scan, reset, autopilot.Options{
		Location:          loc,
		ResetMinute:       cfg.Autopilot.ResetMinute,
		ScanMinute:        cfg.Autopilot.ScanMinute,
		MarketOpenMinute:  cfg.Autopilot.MarketOpenMinute,
		MarketCloseMinute: cfg.Autopilot.MarketCloseMinute,
		RescanInterval:    cfg.Autopilot.RescanInterval,
		PollInterval:      cfg.Autopilot.PollInterval,
		ScanTimeout:       cfg.Screener.ScanTimeout,
	}, a.Logger)

	source := func() broadcast.Message {
		return a.assembleState(pipe.aggregator.Latest(), sched)
	}

	hub = broadcast.NewHub(source, cfg.Dashboard.TickInterval, a.Logger)

	// Manual scans outlive the request that triggered them; tie them to
	// the service lifetime, not the handler's context.
	trigger := func(context.Context) bool { return sched.TriggerScan(ctx) }

	server := dashboard.New(hub, source, trigger, dashboard.Options{
		ListenAddr: cfg.Dashboard.ListenAddr,
	}, a.Logger)

	a.Logger.Info().
		Str("environment", cfg.App.Environment).
		Bool("autopilot", cfg.Autopilot.Enabled).
		Msg("starting screener service")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return monitor.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	if cfg.Autopilot.Enabled {
		g.Go(func() error { return sched.Run(gctx) })
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("screener service stopped")
	return nil
}

func (a *App) assembleState(snap *screener.WatchlistSnapshot, sched *autopilot.Scheduler) broadcast.Message {
	msg := broadcast.Message{Type: broadcast.TypeSnapshot}
	if sched != nil {
		msg.SchedulerState = string(sched.State())
	}
	if snap != nil {
		msg.ScanID = snap.ScanID
		msg.GeneratedAt = snap.GeneratedAt
		msg.RawCandidates = snap.RawCandidates
		msg.Outcomes = snap.Outcomes
		msg.FinalWatchlist = snap.FinalWatchlist
	}
	if a.Ring != nil {
		msg.LogLines = a.Ring.Tail(a.Config.Dashboard.LogTail)
	}
	return msg
}
