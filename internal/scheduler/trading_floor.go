package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradingfloor/internal/trader"
)

// CycleRunner is one trader's trading cycle.
type CycleRunner interface {
	Name() string
	RunCycle(ctx context.Context) (*trader.CycleResult, error)
}

// MarketOpenChecker reports whether the market is open right now. The live
// quote check is preferred; the exchange calendar stands in when the live
// check fails.
type MarketOpenChecker func(ctx context.Context) (bool, error)

// TradingFloorJob runs every trader's cycle in sequence. When the market is
// closed the round is skipped entirely unless the closed-market override is
// set.
type TradingFloorJob struct {
	traders       []CycleRunner
	isMarketOpen  MarketOpenChecker
	hours         *MarketHoursService
	runWhenClosed bool
	cycleTimeout  time.Duration
	log           zerolog.Logger

	mu        sync.Mutex
	lastRound time.Time
	lastRan   bool
}

func NewTradingFloorJob(
	traders []CycleRunner,
	isMarketOpen MarketOpenChecker,
	hours *MarketHoursService,
	runWhenClosed bool,
	cycleTimeout time.Duration,
	log zerolog.Logger,
) *TradingFloorJob {
	return &TradingFloorJob{
		traders:       traders,
		isMarketOpen:  isMarketOpen,
		hours:         hours,
		runWhenClosed: runWhenClosed,
		cycleTimeout:  cycleTimeout,
		log:           log.With().Str("component", "trading_floor").Logger(),
	}
}

// Name implements Job
func (j *TradingFloorJob) Name() string {
	return "trading_floor"
}

// LastRound reports when the most recent trading round finished. ok is false
// until the first round has run.
func (j *TradingFloorJob) LastRound() (time.Time, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRound, j.lastRan
}

// Run implements Job
func (j *TradingFloorJob) Run() error {
	ctx := context.Background()

	if !j.runWhenClosed && !j.marketOpen(ctx) {
		j.log.Info().Msg("Market closed, skipping trading round")
		return nil
	}

	j.log.Info().Int("traders", len(j.traders)).Msg("Starting trading round")
	started := time.Now()

	var failures int
	for _, t := range j.traders {
		result, err := j.runOne(ctx, t)
		if err != nil {
			failures++
			j.log.Error().Err(err).Str("trader", t.Name()).Msg("Trader cycle failed")
			continue
		}
		j.log.Info().
			Str("trader", t.Name()).
			Int("executed", result.Executed).
			Int("rejected", result.Rejected).
			Str("portfolio_value", result.Value).
			Msg("Trader cycle complete")
	}

	j.log.Info().
		Int("traders", len(j.traders)).
		Int("failures", failures).
		Dur("elapsed", time.Since(started)).
		Msg("Trading round complete")

	j.mu.Lock()
	j.lastRound = time.Now()
	j.lastRan = true
	j.mu.Unlock()

	if failures == len(j.traders) && len(j.traders) > 0 {
		return fmt.Errorf("all %d trader cycles failed", failures)
	}
	return nil
}

// runOne bounds a single trader's cycle and contains its panics so one
// misbehaving trader cannot take down the round.
func (j *TradingFloorJob) runOne(ctx context.Context, t CycleRunner) (result *trader.CycleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trader %s panicked: %v", t.Name(), r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, j.cycleTimeout)
	defer cancel()

	return t.RunCycle(ctx)
}

func (j *TradingFloorJob) marketOpen(ctx context.Context) bool {
	open, err := j.isMarketOpen(ctx)
	if err == nil {
		return open
	}
	j.log.Warn().Err(err).Msg("Live market check failed, using exchange calendar")
	return j.hours.IsMarketOpen("NYSE")
}
