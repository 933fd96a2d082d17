// Package autopilot drives the unattended daily scan cycle: reset in
// the early morning, first scan before the open, rescans until the
// bell, idle after the close. No user action required.
package autopilot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// State of the daily cycle. Exactly one instance exists process-wide,
// owned by the Scheduler.
type State string

const (
	StateIdle       State = "IDLE"
	StateScanning   State = "SCANNING"
	StateMonitoring State = "MONITORING"
	StateResetting  State = "RESETTING"
)

// Clock abstracts wall time so the cycle is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return systemClock{} }

// Options parameterise the scheduler. Minute values are minute-of-day
// in Location.
type Options struct {
	Location          *time.Location
	ResetMinute       int
	ScanMinute        int
	MarketOpenMinute  int
	MarketCloseMinute int
	RescanInterval    time.Duration
	PollInterval      time.Duration
	ScanTimeout       time.Duration
	Clock             Clock
}

// Scheduler is the time-driven state machine that triggers scans,
// rescans, and the daily reset.
type Scheduler struct {
	scan   func(ctx context.Context) error
	reset  func()
	opts   Options
	clock  Clock
	logger zerolog.Logger

	inFlight  atomic.Bool
	coalesced atomic.Uint64

	mu         sync.Mutex
	state      State
	day        string
	scanDone   bool
	resetDone  bool
	eodDone    bool
	lastRescan time.Time
	lastScanAt time.Time
}

// New constructs a scheduler. scan runs the pipeline and publishes the
// snapshot; reset clears day-scoped state (ledger, snapshot).
func New(scan func(ctx context.Context) error, reset func(), opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 2 * time.Minute
	}
	if opts.RescanInterval <= 0 {
		opts.RescanInterval = 5 * time.Minute
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{
		scan:   scan,
		reset:  reset,
		opts:   opts,
		clock:  clock,
		logger: logger.With().Str("component", "autopilot").Logger(),
		state:  StateIdle,
	}
}

// Run evaluates the schedule on every poll interval until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.logger.Info().
		Int("scan_minute", s.opts.ScanMinute).
		Int("reset_minute", s.opts.ResetMinute).
		Dur("rescan_interval", s.opts.RescanInterval).
		Msg("autopilot enabled")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx, s.clock.Now())
		}
	}
}

// Tick advances the state machine for the given instant. Exposed so
// tests can drive the schedule with a fake clock.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	now = now.In(s.opts.Location)
	minute := now.Hour()*60 + now.Minute()

	s.mu.Lock()

	if day := now.Format("2006-01-02"); day != s.day {
		s.day = day
		s.scanDone = false
		s.resetDone = false
		s.eodDone = false
		s.lastRescan = time.Time{}
	}

	if wd := now.Weekday(); wd == time.Saturday || wd == time.Sunday {
		s.mu.Unlock()
		return
	}

	if !s.resetDone && minute >= s.opts.ResetMinute {
		s.resetDone = true
		if s.state != StateScanning {
			s.state = StateResetting
		}
		s.mu.Unlock()
		s.logger.Info().Msg("daily reset, clearing previous session")
		if s.reset != nil {
			s.reset()
		}
		s.mu.Lock()
		if s.state == StateResetting {
			s.state = StateIdle
		}
	}

	trigger := false
	switch {
	case !s.scanDone && minute >= s.opts.ScanMinute:
		s.scanDone = true
		s.lastRescan = now
		trigger = true
		s.logger.Info().Msg("triggering market scan")
	case s.scanDone && minute >= s.opts.ScanMinute && minute < s.opts.MarketOpenMinute &&
		!s.lastRescan.IsZero() && now.Sub(s.lastRescan) >= s.opts.RescanInterval:
		s.lastRescan = now
		trigger = true
		s.logger.Info().Msg("rescanning before the open")
	}

	if !s.eodDone && minute >= s.opts.MarketCloseMinute {
		s.eodDone = true
		if s.state == StateMonitoring {
			s.state = StateIdle
		}
		s.logger.Info().Msg("market closed, day complete")
	}

	s.mu.Unlock()

	if trigger {
		s.TriggerScan(ctx)
	}
}

// TriggerScan starts a scan unless one is already in flight, in which
// case the trigger is coalesced (dropped, counted, not queued). Used
// by both the schedule and the dashboard's manual scan endpoint.
func (s *Scheduler) TriggerScan(ctx context.Context) bool {
	if !s.inFlight.CompareAndSwap(false, true) {
		n := s.coalesced.Add(1)
		s.logger.Warn().Uint64("coalesced_total", n).Msg("scan already in progress, trigger coalesced")
		return false
	}

	s.setState(StateScanning)

	go func() {
		defer s.inFlight.Store(false)

		scanCtx, cancel := context.WithTimeout(ctx, s.opts.ScanTimeout)
		defer cancel()

		err := s.scan(scanCtx)
		switch {
		case err == nil:
			s.mu.Lock()
			s.lastScanAt = s.clock.Now()
			s.mu.Unlock()
		case scanCtx.Err() != nil:
			// Partial results were discarded by the aggregator; back
			// off to the schedule instead of retrying immediately.
			s.logger.Warn().Err(err).Msg("scan abandoned")
		default:
			s.logger.Error().Err(err).Msg("scan failed")
		}

		s.setState(StateMonitoring)
	}()

	return true
}

// State returns the current cycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastScanAt returns the completion time of the last successful scan.
func (s *Scheduler) LastScanAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScanAt
}

// CoalescedTriggers counts triggers dropped while a scan was in
// flight. Dropped triggers are counted, never surfaced as errors.
func (s *Scheduler) CoalescedTriggers() uint64 {
	return s.coalesced.Load()
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}
