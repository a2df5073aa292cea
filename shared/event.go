package shared

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind tags the payload carried by an event.
type EventKind int

const (
	MinuteBar EventKind = iota
	FiveMinuteBar
	DailyBar
	TickUpdate
	FillConfirmation
)

// String stringifies the provided event kind.
func (k EventKind) String() string {
	switch k {
	case MinuteBar:
		return "minute bar"
	case FiveMinuteBar:
		return "five minute bar"
	case DailyBar:
		return "daily bar"
	case TickUpdate:
		return "tick"
	case FillConfirmation:
		return "fill"
	default:
		return "unknown"
	}
}

// BarEventKind returns the event kind for bars of the provided timeframe.
func BarEventKind(timeframe Timeframe) (EventKind, error) {
	switch timeframe {
	case OneMinute:
		return MinuteBar, nil
	case FiveMinute:
		return FiveMinuteBar, nil
	case Daily:
		return DailyBar, nil
	default:
		return 0, fmt.Errorf("%w: no bar event for timeframe %s", ErrTimeframeMismatch, timeframe.String())
	}
}

// Tick represents a price-only market update.
type Tick struct {
	Market string
	Price  decimal.Decimal
	Time   time.Time
}

// Fill represents an order fill confirmation.
type Fill struct {
	Market      string
	Direction   Direction
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Time        time.Time
	Liquidation bool
}

// Event represents a timestamped market data or order update. Exactly one
// payload is set, matching the kind.
type Event struct {
	Kind EventKind
	Bar  *Bar
	Tick *Tick
	Fill *Fill
}

// NewBarEvent wraps the provided bar in an event tagged by its timeframe.
func NewBarEvent(bar *Bar) (Event, error) {
	kind, err := BarEventKind(bar.Timeframe)
	if err != nil {
		return Event{}, err
	}

	return Event{Kind: kind, Bar: bar}, nil
}

// NewTickEvent wraps the provided tick in an event.
func NewTickEvent(tick *Tick) Event {
	return Event{Kind: TickUpdate, Tick: tick}
}

// NewFillEvent wraps the provided fill in an event.
func NewFillEvent(fill *Fill) Event {
	return Event{Kind: FillConfirmation, Fill: fill}
}

// Validate asserts the event payload matches its kind.
func (e *Event) Validate() error {
	switch e.Kind {
	case MinuteBar, FiveMinuteBar, DailyBar:
		if e.Bar == nil || e.Tick != nil || e.Fill != nil {
			return fmt.Errorf("%s event must carry only a bar", e.Kind.String())
		}
		kind, err := BarEventKind(e.Bar.Timeframe)
		if err != nil {
			return err
		}
		if kind != e.Kind {
			return fmt.Errorf("%w: %s bar carried by %s event", ErrTimeframeMismatch,
				e.Bar.Timeframe.String(), e.Kind.String())
		}
	case TickUpdate:
		if e.Tick == nil || e.Bar != nil || e.Fill != nil {
			return fmt.Errorf("tick event must carry only a tick")
		}
	case FillConfirmation:
		if e.Fill == nil || e.Bar != nil || e.Tick != nil {
			return fmt.Errorf("fill event must carry only a fill")
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownEvent, e.Kind)
	}

	return nil
}

// Time returns the ordering timestamp of the event: the start of bars and the
// time of ticks and fills.
func (e *Event) Time() time.Time {
	switch {
	case e.Bar != nil:
		return e.Bar.Start
	case e.Tick != nil:
		return e.Tick.Time
	case e.Fill != nil:
		return e.Fill.Time
	default:
		return time.Time{}
	}
}
