package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/dnldd/pivotbreak/indicator"
	"github.com/dnldd/pivotbreak/shared"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// DefaultStopMargin is the default distance beyond the pivot band that stops a position out.
	DefaultStopMargin = decimal.NewFromInt(5)
	// DefaultProfitMargin is the default distance from the fill price that takes profit.
	DefaultProfitMargin = decimal.NewFromInt(60)
)

// GateConfig represents the position gate configuration.
type GateConfig struct {
	// Market is the name of the tracked market.
	Market string
	// StopMargin is the distance beyond the pivot band that stops a position out.
	StopMargin decimal.Decimal
	// ProfitMargin is the distance from the last fill price that takes profit.
	ProfitMargin decimal.Decimal
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Validate asserts the config sane inputs.
func (cfg *GateConfig) Validate() error {
	var errs error

	if cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string"))
	}
	if cfg.StopMargin.IsNegative() {
		errs = errors.Join(errs, fmt.Errorf("stop margin cannot be negative"))
	}
	if !cfg.ProfitMargin.IsPositive() {
		errs = errors.Join(errs, fmt.Errorf("profit margin must be positive"))
	}
	if cfg.Logger == nil {
		errs = errors.Join(errs, fmt.Errorf("logger cannot be nil"))
	}

	return errs
}

// Gate decides when an open position should be exited. It owns the last fill
// price, which only fill confirmations update.
type Gate struct {
	cfg           *GateConfig
	tracker       indicator.PivotTracker
	open          bool
	direction     shared.Direction
	lastFillPrice decimal.Decimal
}

// NewGate initializes a new position gate.
func NewGate(cfg *GateConfig) (*Gate, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Gate{cfg: cfg}, nil
}

// UpdatePivotBand sets the provided band as the next band exits are measured against.
func (g *Gate) UpdatePivotBand(band indicator.PivotBand) {
	g.tracker.Update(band)
}

// OnFill applies the provided fill confirmation. Entry fills open the gate
// and set the last fill price, liquidation fills close it.
func (g *Gate) OnFill(fill *shared.Fill) error {
	if fill.Market != g.cfg.Market {
		return fmt.Errorf("unexpected %s fill provided for %s gate", fill.Market, g.cfg.Market)
	}

	if fill.Liquidation {
		g.cfg.Logger.Debug().Msgf("liquidation of %s filled @ %s", fill.Market, fill.Price.String())
		g.Close()
		return nil
	}

	g.open = true
	g.direction = fill.Direction
	g.lastFillPrice = fill.Price

	return nil
}

// IsOpen checks whether the gate tracks an open position.
func (g *Gate) IsOpen() bool {
	return g.open
}

// Close stops tracking the open position.
func (g *Gate) Close() {
	g.open = false
}

// IsExit checks whether the provided price exits the open position. A passing
// check closes the gate so an exit fires once per position.
func (g *Gate) IsExit(price decimal.Decimal, at time.Time) (bool, *shared.Signal) {
	if !g.open {
		return false, nil
	}

	band, ok := g.tracker.At(at)
	if !ok {
		return false, nil
	}

	var exit bool
	var reason shared.Reason
	switch g.direction {
	case shared.Long:
		switch {
		case price.LessThan(band.Support.Sub(g.cfg.StopMargin)):
			exit, reason = true, shared.StopLossHit
		case price.GreaterThanOrEqual(g.lastFillPrice.Add(g.cfg.ProfitMargin)):
			exit, reason = true, shared.TargetHit
		}
	case shared.Short:
		switch {
		case price.GreaterThan(band.Resistance.Add(g.cfg.StopMargin)):
			exit, reason = true, shared.StopLossHit
		case price.LessThanOrEqual(g.lastFillPrice.Sub(g.cfg.ProfitMargin)):
			exit, reason = true, shared.TargetHit
		}
	}

	if !exit {
		return false, nil
	}

	g.open = false
	signal := shared.NewExitSignal(g.cfg.Market, g.direction, price, reason, at)

	g.cfg.Logger.Info().Msgf("exiting %s %s position filled @ %s at %s (%s), band [%s, %s]",
		g.direction.String(), g.cfg.Market, g.lastFillPrice.String(), price.String(), reason.String(),
		band.Support.String(), band.Resistance.String())

	return true, &signal
}
