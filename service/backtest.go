package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dnldd/pivotbreak/database"
	"github.com/dnldd/pivotbreak/fetch"
	"github.com/dnldd/pivotbreak/position"
	"github.com/dnldd/pivotbreak/shared"
	"github.com/dnldd/pivotbreak/strategy"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/atomic"
)

const (
	// persistTimeout is the time allowed for journaling a closed position.
	persistTimeout = time.Second * 5
)

// BacktestConfig represents the configuration struct for the backtest service.
type BacktestConfig struct {
	// Market is the backtested market.
	Market string
	// Sources are the bar sources replayed.
	Sources []fetch.BarSource
	// Location is the session location of the market.
	Location *time.Location
	// WindowSize is the number of five minute bars a breakout is validated over.
	WindowSize int
	// ShortEnabled enables breakouts below support.
	ShortEnabled bool
	// DeriveFiveMinute consolidates five minute bars from minute bars.
	DeriveFiveMinute bool
	// DeriveDaily consolidates daily bars from minute bars.
	DeriveDaily bool
	// StopMargin is the distance beyond the pivot band that stops a position out.
	StopMargin decimal.Decimal
	// ProfitMargin is the distance from the fill price that takes profit.
	ProfitMargin decimal.Decimal
	// SizeFraction is the portfolio fraction of each entry order.
	SizeFraction decimal.Decimal
	// Journal journals signals and closed positions.
	Journal database.Journal
	// HeartbeatSeconds is the interval between replay progress logs. Zero disables them.
	HeartbeatSeconds int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *BacktestConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("backtest market cannot be an empty string"))
	}
	if len(cfg.Sources) == 0 {
		errs = errors.Join(errs, fmt.Errorf("no bar sources provided for backtest"))
	}
	if cfg.Location == nil {
		errs = errors.Join(errs, fmt.Errorf("location cannot be nil"))
	}
	if cfg.Journal == nil {
		errs = errors.Join(errs, fmt.Errorf("journal cannot be nil"))
	}
	if cfg.HeartbeatSeconds < 0 {
		errs = errors.Join(errs, fmt.Errorf("heartbeat seconds cannot be negative"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Summary represents the outcome of a backtest.
type Summary struct {
	Events    int64
	Signals   int64
	Positions int
	Wins      int
	Losses    int
	Points    decimal.Decimal
	// Open is set when a position is still open at the end of the replay.
	Open bool
	// Skipped is the number of malformed records the sources skipped.
	Skipped int
}

// skipper is implemented by sources that skip malformed records.
type skipper interface {
	Skipped() int
}

// Backtest replays historic bars through the pivot breakout strategy against
// a paper position manager.
type Backtest struct {
	cfg             *BacktestConfig
	merger          *fetch.Merger
	strategy        *strategy.Strategy
	positionManager *position.Manager
	jobScheduler    *gocron.Scheduler
	halted          map[shared.EventKind]struct{}
	events          atomic.Int64
	signals         atomic.Int64
	closed          atomic.Int64
	logger          *zerolog.Logger
}

// NewBacktest initializes a new backtest service.
func NewBacktest(cfg *BacktestConfig) (*Backtest, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger.With().Str("service", "backtest").Logger()

	b := &Backtest{
		cfg:          cfg,
		merger:       fetch.Merge(cfg.Sources...),
		jobScheduler: gocron.NewScheduler(cfg.Location),
		halted:       make(map[shared.EventKind]struct{}),
		logger:       &logger,
	}

	positionMgrLogger := logger.With().Str("component", "positionmanager").Logger()
	b.positionManager = position.NewPositionManager(&position.ManagerConfig{
		PersistClosedPosition: b.persistClosedPosition,
		Logger:                &positionMgrLogger,
	})

	strategyLogger := logger.With().Str("component", "strategy").Logger()
	b.strategy, err = strategy.NewStrategy(&strategy.StrategyConfig{
		Market:           cfg.Market,
		Location:         cfg.Location,
		WindowSize:       cfg.WindowSize,
		ShortEnabled:     cfg.ShortEnabled,
		DeriveFiveMinute: cfg.DeriveFiveMinute,
		DeriveDaily:      cfg.DeriveDaily,
		StopMargin:       cfg.StopMargin,
		ProfitMargin:     cfg.ProfitMargin,
		SizeFraction:     cfg.SizeFraction,
		OrderSink:        b.positionManager,
		Logger:           &strategyLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating strategy: %w", err)
	}

	return b, nil
}

// persistClosedPosition journals the provided closed position.
func (b *Backtest) persistClosedPosition(pos *position.Position) error {
	b.closed.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	return b.cfg.Journal.PersistClosedPosition(ctx, pos)
}

// heartbeat logs the replay progress.
func (b *Backtest) heartbeat() {
	b.logger.Info().Msgf("replayed %d events, %d signals, %d closed positions", b.events.Load(),
		b.signals.Load(), b.closed.Load())
}

// dispatch hands the provided event to the strategy, journals the resulting
// signals and dispatches the fills they caused.
func (b *Backtest) dispatch(ctx context.Context, ev shared.Event) error {
	signals, err := b.strategy.Handle(ev)
	if err != nil {
		return err
	}

	for idx := range signals {
		b.signals.Inc()

		err := b.cfg.Journal.PersistSignal(ctx, signals[idx])
		if err != nil {
			b.logger.Error().Msgf("journaling signal %s: %v", signals[idx].ID, err)
		}
	}

	var errs error
	for _, fill := range b.positionManager.DrainFills() {
		err := b.dispatch(ctx, fill)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("dispatching fill: %w", err))
		}
	}

	return errs
}

// Run replays the bar sources until they are exhausted or the context is
// cancelled. Ordering violations stop the affected stream; the errors
// encountered are returned joined.
func (b *Backtest) Run(ctx context.Context) error {
	if b.cfg.HeartbeatSeconds > 0 {
		_, err := b.jobScheduler.Every(b.cfg.HeartbeatSeconds).Seconds().Do(b.heartbeat)
		if err != nil {
			return fmt.Errorf("scheduling heartbeat: %w", err)
		}

		b.jobScheduler.StartAsync()
		defer b.jobScheduler.Stop()
	}

	var errs error
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msgf("backtest for %s cancelled", b.cfg.Market)
			return errs
		default:
		}

		ev, err := b.merger.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return errors.Join(errs, fmt.Errorf("reading events: %w", err))
		}

		if _, ok := b.halted[ev.Kind]; ok {
			continue
		}

		b.events.Inc()

		err = b.dispatch(ctx, ev)
		if err != nil {
			if errors.Is(err, shared.ErrOutOfOrder) {
				b.halted[ev.Kind] = struct{}{}
				b.logger.Error().Msgf("stopped feeding %s events: %v", ev.Kind.String(), err)
			} else {
				b.logger.Error().Msgf("dispatching %s event: %v", ev.Kind.String(), err)
			}

			errs = errors.Join(errs, err)
		}
	}

	summary := b.Summary()
	b.logger.Info().Msgf("backtest for %s done: %d events, %d signals, %d positions (%d wins, %d losses), "+
		"%s points", b.cfg.Market, summary.Events, summary.Signals, summary.Positions, summary.Wins,
		summary.Losses, summary.Points.String())
	if summary.Skipped > 0 {
		b.logger.Warn().Msgf("skipped %d malformed %s records", summary.Skipped, b.cfg.Market)
	}
	if pos, ok := b.positionManager.ActivePosition(b.cfg.Market); ok {
		b.logger.Warn().Msgf("%s position (%s) for %s still open, entered @ %s", pos.Direction.String(),
			pos.ID, pos.Market, pos.EntryPrice.String())
	}

	return errs
}

// Summary returns the outcome of the backtest so far.
func (b *Backtest) Summary() Summary {
	summary := Summary{
		Events:  b.events.Load(),
		Signals: b.signals.Load(),
		Points:  decimal.Zero,
	}

	for _, src := range b.cfg.Sources {
		if s, ok := src.(skipper); ok {
			summary.Skipped += s.Skipped()
		}
	}

	_, summary.Open = b.positionManager.ActivePosition(b.cfg.Market)

	for _, pos := range b.positionManager.ClosedPositions() {
		summary.Positions++
		summary.Points = summary.Points.Add(pos.PNL)

		switch pos.Status {
		case position.StoppedOut:
			summary.Losses++
		case position.Closed:
			summary.Wins++
		}
	}

	return summary
}
