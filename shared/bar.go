package shared

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentiment represents the bar sentiment.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

// String stringifies the provided sentiment.
func (s Sentiment) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "unknown"
	}
}

// Bar represents a unit price bar for a market.
type Bar struct {
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
	Start  time.Time
	End    time.Time

	// Metadata.
	Market    string
	Timeframe Timeframe
}

// NewBar initializes a new bar, asserting its start precedes its end and its
// open and close lie within its range.
func NewBar(market string, timeframe Timeframe, start time.Time, end time.Time,
	open, high, low, close, volume decimal.Decimal) (*Bar, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrInvalidBar,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if high.LessThan(low) {
		return nil, fmt.Errorf("%w: high %s is below low %s", ErrInvalidBar, high.String(), low.String())
	}
	for _, price := range []decimal.Decimal{open, close} {
		if price.LessThan(low) || price.GreaterThan(high) {
			return nil, fmt.Errorf("%w: %s is outside range [%s, %s]", ErrInvalidBar, price.String(),
				low.String(), high.String())
		}
	}

	return &Bar{
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
		Start:     start,
		End:       end,
		Market:    market,
		Timeframe: timeframe,
	}, nil
}

// FetchSentiment returns the bar's sentiment.
func (b *Bar) FetchSentiment() Sentiment {
	switch b.Close.Cmp(b.Open) {
	case 1:
		return Bullish
	case -1:
		return Bearish
	default:
		return Neutral
	}
}
