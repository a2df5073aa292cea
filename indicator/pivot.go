package indicator

import (
	"fmt"
	"time"

	"github.com/dnldd/pivotbreak/shared"
	"github.com/shopspring/decimal"
)

var (
	two   = decimal.NewFromInt(2)
	three = decimal.NewFromInt(3)
)

// PivotBand represents the support and resistance levels derived from a
// completed daily bar.
type PivotBand struct {
	Center     decimal.Decimal
	Support    decimal.Decimal
	Resistance decimal.Decimal
	// ValidFrom is the end of the daily bar the band was derived from.
	ValidFrom time.Time
}

// ComputePivotBand derives the pivot band for the provided daily bar. The
// resistance is the center mirrored about the high/low midpoint; when that
// lands below the midpoint the two levels are swapped so support never
// exceeds resistance.
func ComputePivotBand(bar *shared.Bar) (PivotBand, error) {
	if bar.Timeframe != shared.Daily {
		return PivotBand{}, fmt.Errorf("%w: expected %s bar, got %s", shared.ErrTimeframeMismatch,
			shared.Daily.String(), bar.Timeframe.String())
	}

	center := bar.High.Add(bar.Low).Add(bar.Close).Div(three)
	support := bar.High.Add(bar.Low).Div(two)
	resistance := center.Sub(support).Add(center)
	if support.GreaterThan(resistance) {
		support, resistance = resistance, support
	}

	return PivotBand{
		Center:     center,
		Support:    support,
		Resistance: resistance,
		ValidFrom:  bar.End,
	}, nil
}

// PivotTracker tracks the pivot band in effect for intraday bars. A newly
// computed band is held as pending until a bar starting at or after its
// daily close is evaluated.
type PivotTracker struct {
	current *PivotBand
	pending *PivotBand
}

// Update stores the provided band as pending, promoting any older pending band.
func (p *PivotTracker) Update(band PivotBand) {
	if p.pending != nil {
		p.current = p.pending
	}

	p.pending = &band
}

// At returns the band in effect at the provided time. It returns false while
// no band has come into effect.
func (p *PivotTracker) At(at time.Time) (PivotBand, bool) {
	if p.pending != nil && !at.Before(p.pending.ValidFrom) {
		p.current = p.pending
		p.pending = nil
	}

	if p.current == nil {
		return PivotBand{}, false
	}

	return *p.current, true
}
