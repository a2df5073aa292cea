package market

import (
	"fmt"
	"time"

	"github.com/dnldd/pivotbreak/shared"
	"github.com/shopspring/decimal"
)

// ConsolidatorConfig represents the bar consolidator configuration.
type ConsolidatorConfig struct {
	// Market is the name of the consolidated market.
	Market string
	// Timeframe is the timeframe of the consolidated bars.
	Timeframe shared.Timeframe
	// Location is the session location period boundaries are aligned to.
	Location *time.Location
}

// accumulator tracks the bar of the period in progress.
type accumulator struct {
	open        decimal.Decimal
	high        decimal.Decimal
	low         decimal.Decimal
	close       decimal.Decimal
	volume      decimal.Decimal
	periodStart time.Time
}

// Consolidator aggregates finer timeframe bars into bars of its timeframe.
// A consolidated bar is only emitted when the first bar of the next period
// arrives.
type Consolidator struct {
	cfg       *ConsolidatorConfig
	acc       *accumulator
	lastStart time.Time
}

// NewConsolidator initializes a new bar consolidator.
func NewConsolidator(cfg *ConsolidatorConfig) (*Consolidator, error) {
	if cfg.Location == nil {
		return nil, fmt.Errorf("consolidator location cannot be nil")
	}
	if cfg.Timeframe.Duration() == 0 || cfg.Timeframe == shared.OneMinute {
		return nil, fmt.Errorf("%w: cannot consolidate into %s bars", shared.ErrTimeframeMismatch,
			cfg.Timeframe.String())
	}

	return &Consolidator{cfg: cfg}, nil
}

// Consume adds the provided bar to the period in progress. It returns the
// completed bar of the previous period when the provided bar starts a new one.
func (c *Consolidator) Consume(bar *shared.Bar) (*shared.Bar, error) {
	if !bar.Timeframe.IsFinerThan(c.cfg.Timeframe) {
		return nil, fmt.Errorf("%w: cannot consolidate %s bars into %s bars", shared.ErrTimeframeMismatch,
			bar.Timeframe.String(), c.cfg.Timeframe.String())
	}

	if !c.lastStart.IsZero() && !bar.Start.After(c.lastStart) {
		return nil, fmt.Errorf("%w: %s bar starting %s does not follow %s", shared.ErrOutOfOrder,
			bar.Timeframe.String(), bar.Start.Format(time.RFC3339), c.lastStart.Format(time.RFC3339))
	}

	periodStart, err := c.cfg.Timeframe.PeriodStart(bar.Start, c.cfg.Location)
	if err != nil {
		return nil, err
	}

	c.lastStart = bar.Start

	var completed *shared.Bar
	if c.acc != nil && !c.acc.periodStart.Equal(periodStart) {
		completed = c.completedBar()
		c.acc = nil
	}

	if c.acc == nil {
		c.acc = &accumulator{
			open:        bar.Open,
			high:        bar.High,
			low:         bar.Low,
			close:       bar.Close,
			volume:      bar.Volume,
			periodStart: periodStart,
		}

		return completed, nil
	}

	if bar.High.GreaterThan(c.acc.high) {
		c.acc.high = bar.High
	}
	if bar.Low.LessThan(c.acc.low) {
		c.acc.low = bar.Low
	}
	c.acc.close = bar.Close
	c.acc.volume = c.acc.volume.Add(bar.Volume)

	return completed, nil
}

// completedBar creates the consolidated bar from the accumulator.
func (c *Consolidator) completedBar() *shared.Bar {
	return &shared.Bar{
		Open:      c.acc.open,
		High:      c.acc.high,
		Low:       c.acc.low,
		Close:     c.acc.close,
		Volume:    c.acc.volume,
		Start:     c.acc.periodStart,
		End:       c.cfg.Timeframe.PeriodEnd(c.acc.periodStart),
		Market:    c.cfg.Market,
		Timeframe: c.cfg.Timeframe,
	}
}

// Timeframe returns the timeframe of the consolidated bars.
func (c *Consolidator) Timeframe() shared.Timeframe {
	return c.cfg.Timeframe
}
