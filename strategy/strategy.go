package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/pivotbreak/engine"
	"github.com/dnldd/pivotbreak/indicator"
	"github.com/dnldd/pivotbreak/market"
	"github.com/dnldd/pivotbreak/position"
	"github.com/dnldd/pivotbreak/shared"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// OrderSink places and liquidates orders on behalf of the strategy. Fills are
// reported back to the strategy as fill confirmation events.
type OrderSink interface {
	// UpdatePrice records the latest accepted price of the market.
	UpdatePrice(market string, price decimal.Decimal, at time.Time)
	// Enter places an order in the provided direction for a fraction of the portfolio.
	Enter(market string, direction shared.Direction, sizeFraction decimal.Decimal) error
	// Liquidate closes the open position of the market.
	Liquidate(market string) error
}

// StrategyConfig represents the strategy configuration.
type StrategyConfig struct {
	// Market is the name of the traded market.
	Market string
	// Location is the session location consolidation periods are aligned to.
	Location *time.Location
	// WindowSize is the number of five minute bars a breakout is validated over.
	WindowSize int
	// ShortEnabled enables breakouts below support.
	ShortEnabled bool
	// DeriveFiveMinute consolidates five minute bars from minute bars. Five
	// minute bar events are ignored when set.
	DeriveFiveMinute bool
	// DeriveDaily consolidates daily bars from minute bars. Daily bar events
	// are ignored when set.
	DeriveDaily bool
	// StopMargin is the distance beyond the pivot band that stops a position out.
	StopMargin decimal.Decimal
	// ProfitMargin is the distance from the last fill price that takes profit.
	ProfitMargin decimal.Decimal
	// SizeFraction is the portfolio fraction of each entry order.
	SizeFraction decimal.Decimal
	// OrderSink places the strategy's orders.
	OrderSink OrderSink
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *StrategyConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.Location == nil {
		errs = errors.Join(errs, fmt.Errorf("location cannot be nil"))
	}
	if !cfg.SizeFraction.IsPositive() || cfg.SizeFraction.GreaterThan(decimal.NewFromInt(1)) {
		errs = errors.Join(errs, fmt.Errorf("size fraction must be in (0, 1], got %s", cfg.SizeFraction.String()))
	}
	if cfg.OrderSink == nil {
		errs = errors.Join(errs, fmt.Errorf("order sink cannot be nil"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Strategy trades breakouts of the daily pivot band. It is the single writer
// of its consolidators, engines and position gate, and must be driven from
// one goroutine in event time order.
type Strategy struct {
	cfg          *StrategyConfig
	fiveMinute   *market.Consolidator
	daily        *market.Consolidator
	engines      []*engine.Engine
	gate         *position.Gate
	lastSeen     map[shared.EventKind]time.Time
	halted       map[shared.EventKind]error
	entryPending bool
}

// NewStrategy initializes a new pivot breakout strategy.
func NewStrategy(cfg *StrategyConfig) (*Strategy, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	var fiveMinute *market.Consolidator
	if cfg.DeriveFiveMinute {
		fiveMinute, err = market.NewConsolidator(&market.ConsolidatorConfig{
			Market:    cfg.Market,
			Timeframe: shared.FiveMinute,
			Location:  cfg.Location,
		})
		if err != nil {
			return nil, fmt.Errorf("creating five minute consolidator: %w", err)
		}
	}

	var daily *market.Consolidator
	if cfg.DeriveDaily {
		daily, err = market.NewConsolidator(&market.ConsolidatorConfig{
			Market:    cfg.Market,
			Timeframe: shared.Daily,
			Location:  cfg.Location,
		})
		if err != nil {
			return nil, fmt.Errorf("creating daily consolidator: %w", err)
		}
	}

	directions := []shared.Direction{shared.Long}
	if cfg.ShortEnabled {
		directions = append(directions, shared.Short)
	}

	engines := make([]*engine.Engine, 0, len(directions))
	for _, direction := range directions {
		eng, err := engine.NewEngine(&engine.EngineConfig{
			Market:     cfg.Market,
			Direction:  direction,
			WindowSize: cfg.WindowSize,
			Logger:     cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating %s engine: %w", direction.String(), err)
		}

		engines = append(engines, eng)
	}

	gate, err := position.NewGate(&position.GateConfig{
		Market:       cfg.Market,
		StopMargin:   cfg.StopMargin,
		ProfitMargin: cfg.ProfitMargin,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating position gate: %w", err)
	}

	return &Strategy{
		cfg:        cfg,
		fiveMinute: fiveMinute,
		daily:      daily,
		engines:    engines,
		gate:       gate,
		lastSeen:   make(map[shared.EventKind]time.Time),
		halted:     make(map[shared.EventKind]error),
	}, nil
}

// checkOrder asserts the provided event follows the last event of its kind.
// An ordering violation halts the stream of that kind.
func (s *Strategy) checkOrder(ev *shared.Event) error {
	if cause, ok := s.halted[ev.Kind]; ok {
		return fmt.Errorf("%w: %s stream stopped after %v", shared.ErrStreamHalted, ev.Kind.String(), cause)
	}

	at := ev.Time()
	last, ok := s.lastSeen[ev.Kind]
	if ok && !at.After(last) {
		err := fmt.Errorf("%w: %s event at %s does not follow %s", shared.ErrOutOfOrder, ev.Kind.String(),
			at.Format(time.RFC3339), last.Format(time.RFC3339))
		s.halted[ev.Kind] = err
		s.cfg.Logger.Error().Msgf("halting %s stream: %v", ev.Kind.String(), err)
		return err
	}

	s.lastSeen[ev.Kind] = at

	return nil
}

// Handle processes the provided event and returns the signals it produced.
func (s *Strategy) Handle(ev shared.Event) ([]shared.Signal, error) {
	err := ev.Validate()
	if err != nil {
		return nil, err
	}

	// Fill confirmations are reported by the order sink and are not part of
	// the market data streams.
	if ev.Kind == shared.FillConfirmation {
		return nil, s.handleFill(ev.Fill)
	}

	err = s.checkMarket(&ev)
	if err != nil {
		return nil, err
	}

	err = s.checkOrder(&ev)
	if err != nil {
		return nil, err
	}

	s.updatePrice(&ev)

	switch ev.Kind {
	case shared.MinuteBar:
		return s.handleMinuteBar(ev.Bar)
	case shared.FiveMinuteBar:
		if s.cfg.DeriveFiveMinute {
			s.cfg.Logger.Debug().Msgf("ignoring %s five minute bar, five minute bars are derived from minute bars",
				ev.Bar.Start.Format(shared.DateLayout))
			return nil, nil
		}
		return s.evaluateBreakout(ev.Bar)
	case shared.DailyBar:
		if s.cfg.DeriveDaily {
			s.cfg.Logger.Debug().Msgf("ignoring %s daily bar, daily bars are derived from minute bars",
				ev.Bar.Start.Format(shared.DateLayout))
			return nil, nil
		}
		return nil, s.updatePivotBand(ev.Bar)
	case shared.TickUpdate:
		return s.evaluateExit(ev.Tick.Price, ev.Tick.Time)
	default:
		return nil, fmt.Errorf("%w: %d", shared.ErrUnknownEvent, ev.Kind)
	}
}

// checkMarket asserts the provided event carries data of the traded market.
func (s *Strategy) checkMarket(ev *shared.Event) error {
	var name string
	switch {
	case ev.Bar != nil:
		name = ev.Bar.Market
	case ev.Tick != nil:
		name = ev.Tick.Market
	}

	if name != s.cfg.Market {
		return fmt.Errorf("unexpected %s data provided for %s strategy", name, s.cfg.Market)
	}

	return nil
}

// updatePrice hands the price carried by the provided event to the order sink.
func (s *Strategy) updatePrice(ev *shared.Event) {
	switch {
	case ev.Bar != nil:
		s.cfg.OrderSink.UpdatePrice(ev.Bar.Market, ev.Bar.Close, ev.Bar.End)
	case ev.Tick != nil:
		s.cfg.OrderSink.UpdatePrice(ev.Tick.Market, ev.Tick.Price, ev.Tick.Time)
	}
}

// handleMinuteBar consolidates the provided minute bar and evaluates exits
// at its close. Completed five minute bars are evaluated before a completed
// daily bar updates the pivot band.
func (s *Strategy) handleMinuteBar(bar *shared.Bar) ([]shared.Signal, error) {
	signals := make([]shared.Signal, 0)

	if s.fiveMinute != nil {
		completed, err := s.fiveMinute.Consume(bar)
		if err != nil {
			return nil, fmt.Errorf("consolidating five minute bar: %w", err)
		}
		if completed != nil {
			entries, err := s.evaluateBreakout(completed)
			if err != nil {
				return nil, err
			}
			signals = append(signals, entries...)
		}
	}

	if s.daily != nil {
		completed, err := s.daily.Consume(bar)
		if err != nil {
			return nil, fmt.Errorf("consolidating daily bar: %w", err)
		}
		if completed != nil {
			err = s.updatePivotBand(completed)
			if err != nil {
				return nil, err
			}
		}
	}

	exits, err := s.evaluateExit(bar.Close, bar.End)
	if err != nil {
		return nil, err
	}
	signals = append(signals, exits...)

	return signals, nil
}

// updatePivotBand derives the pivot band of the provided daily bar and hands
// it to the engines and the gate.
func (s *Strategy) updatePivotBand(bar *shared.Bar) error {
	band, err := indicator.ComputePivotBand(bar)
	if err != nil {
		return fmt.Errorf("computing pivot band: %w", err)
	}

	for _, eng := range s.engines {
		eng.UpdatePivotBand(band)
	}
	s.gate.UpdatePivotBand(band)

	s.cfg.Logger.Info().Msgf("%s pivot band from %s: support %s, center %s, resistance %s",
		s.cfg.Market, bar.Start.Format(shared.DateLayout), band.Support.String(), band.Center.String(),
		band.Resistance.String())

	return nil
}

// evaluateBreakout checks the provided bar for breakouts and routes entries
// to the order sink.
func (s *Strategy) evaluateBreakout(bar *shared.Bar) ([]shared.Signal, error) {
	signals := make([]shared.Signal, 0)

	for _, eng := range s.engines {
		ok, signal, err := eng.IsEntry(bar)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s breakout: %w", eng.Direction().String(), err)
		}
		if !ok {
			continue
		}

		signals = append(signals, *signal)

		err = s.routeEntry(signal)
		if err != nil {
			return nil, err
		}
	}

	return signals, nil
}

// routeEntry places an entry order unless a position is open or an entry is
// already awaiting its fill.
func (s *Strategy) routeEntry(signal *shared.Signal) error {
	if s.gate.IsOpen() || s.entryPending {
		s.cfg.Logger.Debug().Msgf("skipping %s entry for %s, position open or entry pending",
			signal.Direction.String(), s.cfg.Market)
		return nil
	}

	err := s.cfg.OrderSink.Enter(s.cfg.Market, signal.Direction, s.cfg.SizeFraction)
	if err != nil {
		return fmt.Errorf("placing %s entry: %w", signal.Direction.String(), err)
	}

	s.entryPending = true

	return nil
}

// evaluateExit checks the open position against the provided price and
// liquidates it when an exit fires.
func (s *Strategy) evaluateExit(price decimal.Decimal, at time.Time) ([]shared.Signal, error) {
	ok, signal := s.gate.IsExit(price, at)
	if !ok {
		return nil, nil
	}

	err := s.cfg.OrderSink.Liquidate(s.cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("liquidating position: %w", err)
	}

	for _, eng := range s.engines {
		eng.Reset()
	}

	return []shared.Signal{*signal}, nil
}

// handleFill applies the provided fill confirmation.
func (s *Strategy) handleFill(fill *shared.Fill) error {
	err := s.gate.OnFill(fill)
	if err != nil {
		return fmt.Errorf("applying fill: %w", err)
	}

	if !fill.Liquidation {
		s.entryPending = false
	}

	return nil
}
