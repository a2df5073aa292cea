package position

import (
	"fmt"
	"time"

	"github.com/dnldd/pivotbreak/shared"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ManagerConfig represents the paper position manager configuration.
type ManagerConfig struct {
	// Notify sends the provided message.
	Notify func(message string)
	// PersistClosedPosition persists the provided closed position.
	PersistClosedPosition func(position *Position) error
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// quote is the last known price of a market.
type quote struct {
	price decimal.Decimal
	at    time.Time
}

// Manager manages paper positions through their lifecycles. It fills orders
// at the last known price of a market and queues the resulting fill
// confirmations for the caller to dispatch.
type Manager struct {
	cfg       *ManagerConfig
	quotes    map[string]quote
	positions map[string]*Position
	closed    []*Position
	fills     []shared.Event
}

// NewPositionManager initializes a new paper position manager.
func NewPositionManager(cfg *ManagerConfig) *Manager {
	return &Manager{
		cfg:       cfg,
		quotes:    make(map[string]quote),
		positions: make(map[string]*Position),
		closed:    make([]*Position, 0),
		fills:     make([]shared.Event, 0),
	}
}

// UpdatePrice records the provided price as the last known price of the market.
func (m *Manager) UpdatePrice(market string, price decimal.Decimal, at time.Time) {
	m.quotes[market] = quote{price: price, at: at}
}

// Enter opens a position for the market at its last known price.
func (m *Manager) Enter(market string, direction shared.Direction, sizeFraction decimal.Decimal) error {
	q, ok := m.quotes[market]
	if !ok {
		return fmt.Errorf("no price available to fill %s entry", market)
	}

	if _, ok := m.positions[market]; ok {
		return fmt.Errorf("%s already has an active position", market)
	}

	pos, err := NewPosition(market, direction, sizeFraction, q.price, q.at)
	if err != nil {
		return fmt.Errorf("creating position: %w", err)
	}

	m.positions[market] = pos
	m.fills = append(m.fills, shared.NewFillEvent(&shared.Fill{
		Market:    market,
		Direction: direction,
		Price:     q.price,
		Quantity:  sizeFraction,
		Time:      q.at,
	}))

	m.notify(fmt.Sprintf("Created new %s position (%s) for %s @ %s",
		pos.Direction.String(), pos.ID, pos.Market, pos.EntryPrice.String()))

	return nil
}

// Liquidate closes the active position of the market at its last known price.
func (m *Manager) Liquidate(market string) error {
	pos, ok := m.positions[market]
	if !ok {
		m.cfg.Logger.Warn().Msgf("no active %s position to liquidate", market)
		return nil
	}

	q := m.quotes[market]
	_, err := pos.ClosePosition(q.price, q.at)
	if err != nil {
		return fmt.Errorf("closing position: %w", err)
	}

	delete(m.positions, market)
	m.closed = append(m.closed, pos)
	m.fills = append(m.fills, shared.NewFillEvent(&shared.Fill{
		Market:      market,
		Direction:   pos.Direction,
		Price:       q.price,
		Quantity:    pos.Size,
		Time:        q.at,
		Liquidation: true,
	}))

	if m.cfg.PersistClosedPosition != nil {
		err = m.cfg.PersistClosedPosition(pos)
		if err != nil {
			m.cfg.Logger.Error().Msgf("persisting closed position %s: %v", pos.ID, err)
		}
	}

	m.notify(fmt.Sprintf("Closed %s position (%s) for %s @ %s, %s points, %s%% (%s)",
		pos.Direction.String(), pos.ID, pos.Market, pos.ExitPrice.String(), pos.PNL.String(),
		pos.PNLPercent().StringFixed(2), pos.Status.String()))

	return nil
}

// DrainFills returns and clears the queued fill confirmations.
func (m *Manager) DrainFills() []shared.Event {
	fills := m.fills
	m.fills = make([]shared.Event, 0)
	return fills
}

// ActivePosition returns the active position of the market, if any.
func (m *Manager) ActivePosition(market string) (*Position, bool) {
	pos, ok := m.positions[market]
	return pos, ok
}

// ClosedPositions returns the positions closed so far.
func (m *Manager) ClosedPositions() []*Position {
	return m.closed
}

// notify relays the provided message if a notifier is configured.
func (m *Manager) notify(message string) {
	m.cfg.Logger.Info().Msg(message)
	if m.cfg.Notify != nil {
		m.cfg.Notify(message)
	}
}
