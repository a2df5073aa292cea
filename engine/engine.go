package engine

import (
	"errors"
	"fmt"

	"github.com/dnldd/pivotbreak/indicator"
	"github.com/dnldd/pivotbreak/shared"
	"github.com/rs/zerolog"
)

const (
	// DefaultWindowSize is the default number of bars a breakout is validated over.
	DefaultWindowSize = 4
)

// EngineConfig represents the breakout engine configuration.
type EngineConfig struct {
	// Market is the name of the tracked market.
	Market string
	// Direction is the breakout direction watched. Long watches resistance,
	// short watches support.
	Direction shared.Direction
	// WindowSize is the number of consecutive bars a breakout is validated over.
	WindowSize int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *EngineConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.Direction != shared.Long && cfg.Direction != shared.Short {
		errs = errors.Join(errs, fmt.Errorf("unknown direction provided: %s", cfg.Direction.String()))
	}
	if cfg.WindowSize <= 0 {
		errs = errors.Join(errs, fmt.Errorf("window size must be positive, got %d", cfg.WindowSize))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Engine detects breakouts of the pivot band over a rolling window of bars.
// Once a breakout fires the window is reset, so the same bars cannot fire
// it again.
type Engine struct {
	cfg       *EngineConfig
	sentiment shared.Sentiment
	window    *shared.RollingWindow[*shared.Bar]
	tracker   indicator.PivotTracker
}

// NewEngine initializes a new breakout engine.
func NewEngine(cfg *EngineConfig) (*Engine, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	window, err := shared.NewRollingWindow[*shared.Bar](cfg.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("creating rolling window: %w", err)
	}

	sentiment := shared.Bullish
	if cfg.Direction == shared.Short {
		sentiment = shared.Bearish
	}

	return &Engine{
		cfg:       cfg,
		sentiment: sentiment,
		window:    window,
	}, nil
}

// UpdatePivotBand sets the provided band as the next band to test breakouts against.
func (e *Engine) UpdatePivotBand(band indicator.PivotBand) {
	e.tracker.Update(band)
}

// Reset clears the accumulated bar history.
func (e *Engine) Reset() {
	e.window.Reset()
}

// Direction returns the breakout direction watched by the engine.
func (e *Engine) Direction() shared.Direction {
	return e.cfg.Direction
}

// isTrending checks whether every bar in the window carries the sentiment of
// the engine's direction.
func (e *Engine) isTrending() (bool, error) {
	for idx := range e.window.Len() {
		bar, err := e.window.At(idx)
		if err != nil {
			return false, err
		}

		if bar.FetchSentiment() != e.sentiment {
			return false, nil
		}
	}

	return true, nil
}

// IsEntry adds the provided bar to the window and checks whether it breaks
// out of the pivot band in effect.
func (e *Engine) IsEntry(bar *shared.Bar) (bool, *shared.Signal, error) {
	e.window.Add(bar)
	if !e.window.IsReady() {
		return false, nil, nil
	}

	trending, err := e.isTrending()
	if err != nil {
		return false, nil, err
	}
	if !trending {
		// A single counter-trend bar only suppresses this evaluation.
		return false, nil, nil
	}

	band, ok := e.tracker.At(bar.Start)
	if !ok {
		return false, nil, nil
	}

	current, err := e.window.At(0)
	if err != nil {
		return false, nil, err
	}

	var breakout bool
	var reason shared.Reason
	var level string
	switch e.cfg.Direction {
	case shared.Long:
		breakout = current.Open.LessThan(band.Resistance) && current.Close.GreaterThan(band.Resistance)
		reason = shared.BreakAboveResistance
		level = band.Resistance.String()
	case shared.Short:
		breakout = current.Open.GreaterThan(band.Support) && current.Close.LessThan(band.Support)
		reason = shared.BreakBelowSupport
		level = band.Support.String()
	}

	if !breakout {
		return false, nil, nil
	}

	signal := shared.NewEntrySignal(e.cfg.Market, current.Timeframe, e.cfg.Direction, current.Close,
		reason, current.End)

	e.cfg.Logger.Info().Msgf("%s breakout for %s at %s: open %s, close %s, level %s, band [%s, %s]",
		e.cfg.Direction.String(), e.cfg.Market, current.End.Format(shared.DateLayout), current.Open.String(),
		current.Close.String(), level, band.Support.String(), band.Resistance.String())

	e.window.Reset()

	return true, &signal, nil
}
