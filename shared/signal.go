package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SignalKind represents the type of trade signal.
type SignalKind int

const (
	Enter SignalKind = iota
	Exit
)

// String stringifies the provided signal kind.
func (k SignalKind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

// Signal represents a trade entry or exit signal.
type Signal struct {
	ID        string
	Kind      SignalKind
	Direction Direction
	Market    string
	Timeframe Timeframe
	Price     decimal.Decimal
	Reason    Reason
	CreatedOn time.Time
}

// NewEntrySignal initializes a new entry signal.
func NewEntrySignal(market string, timeframe Timeframe, direction Direction, price decimal.Decimal,
	reason Reason, created time.Time) Signal {
	return Signal{
		ID:        uuid.New().String(),
		Kind:      Enter,
		Direction: direction,
		Market:    market,
		Timeframe: timeframe,
		Price:     price,
		Reason:    reason,
		CreatedOn: created,
	}
}

// NewExitSignal initializes a new exit signal.
func NewExitSignal(market string, direction Direction, price decimal.Decimal,
	reason Reason, created time.Time) Signal {
	return Signal{
		ID:        uuid.New().String(),
		Kind:      Exit,
		Direction: direction,
		Market:    market,
		Timeframe: OneMinute,
		Price:     price,
		Reason:    reason,
		CreatedOn: created,
	}
}
