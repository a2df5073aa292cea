package position

import (
	"fmt"
	"time"

	"github.com/dnldd/pivotbreak/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionStatus represents the status of a position.
type PositionStatus int

const (
	Active PositionStatus = iota
	StoppedOut
	Closed
)

// String stringifies the provided position status.
func (s PositionStatus) String() string {
	switch s {
	case Active:
		return "active"
	case StoppedOut:
		return "stopped out"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Position represents a paper market position.
type Position struct {
	ID         string
	Market     string
	Direction  shared.Direction
	Size       decimal.Decimal
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	PNL        decimal.Decimal
	Status     PositionStatus
	CreatedOn  time.Time
	ClosedOn   time.Time
}

// NewPosition initializes a new position.
func NewPosition(market string, direction shared.Direction, size decimal.Decimal,
	price decimal.Decimal, created time.Time) (*Position, error) {
	if !size.IsPositive() {
		return nil, fmt.Errorf("position size must be positive, got %s", size.String())
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("position entry price must be positive, got %s", price.String())
	}

	return &Position{
		ID:         uuid.New().String(),
		Market:     market,
		Direction:  direction,
		Size:       size,
		EntryPrice: price,
		Status:     Active,
		CreatedOn:  created,
	}, nil
}

// UpdatePNL updates the points gained or lost by the position at the provided price.
func (p *Position) UpdatePNL(currentPrice decimal.Decimal) (decimal.Decimal, error) {
	switch p.Direction {
	case shared.Long:
		p.PNL = currentPrice.Sub(p.EntryPrice)
	case shared.Short:
		p.PNL = p.EntryPrice.Sub(currentPrice)
	default:
		return decimal.Zero, fmt.Errorf("unknown direction for position: %s", p.Direction.String())
	}

	return p.PNL, nil
}

// PNLPercent returns the percentage change of the position.
func (p *Position) PNLPercent() decimal.Decimal {
	return p.PNL.Div(p.EntryPrice).Mul(decimal.NewFromInt(100))
}

// ClosePosition closes the position at the provided price.
func (p *Position) ClosePosition(price decimal.Decimal, closed time.Time) (PositionStatus, error) {
	if p.Status != Active {
		return p.Status, fmt.Errorf("position %s is already %s", p.ID, p.Status.String())
	}

	_, err := p.UpdatePNL(price)
	if err != nil {
		return p.Status, err
	}

	p.ExitPrice = price
	p.ClosedOn = closed

	switch {
	case p.PNL.IsNegative():
		p.Status = StoppedOut
	default:
		p.Status = Closed
	}

	return p.Status, nil
}
