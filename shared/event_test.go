package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

func TestEventKindString(t *testing.T) {
	tests := []struct {
		name string
		kind EventKind
		want string
	}{
		{"minute bar", MinuteBar, "minute bar"},
		{"five minute bar", FiveMinuteBar, "five minute bar"},
		{"daily bar", DailyBar, "daily bar"},
		{"tick", TickUpdate, "tick"},
		{"fill", FillConfirmation, "fill"},
		{"unknown", EventKind(999), "unknown"},
	}

	for _, test := range tests {
		str := test.kind.String()
		if str != test.want {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, str)
		}
	}
}

func TestEvents(t *testing.T) {
	start := time.Date(2022, 10, 21, 9, 15, 0, 0, time.UTC)
	price := decimal.NewFromInt(100)

	// Ensure bar events are tagged by the bar timeframe.
	for _, timeframe := range []Timeframe{OneMinute, FiveMinute, Daily} {
		bar, err := NewBar("NIFTY50", timeframe, start, timeframe.PeriodEnd(start), price, price, price, price, decimal.Zero)
		assert.NoError(t, err)

		ev, err := NewBarEvent(bar)
		assert.NoError(t, err)
		assert.NoError(t, ev.Validate())
		assert.True(t, ev.Time().Equal(start))
	}

	// Ensure bars of an unknown timeframe cannot be wrapped.
	_, err := NewBarEvent(&Bar{Timeframe: Timeframe(999)})
	assert.True(t, errors.Is(err, ErrTimeframeMismatch))

	// Ensure a bar event carrying a bar of another timeframe fails validation.
	ev := Event{Kind: DailyBar, Bar: &Bar{Timeframe: FiveMinute}}
	assert.True(t, errors.Is(ev.Validate(), ErrTimeframeMismatch))

	// Ensure events must carry exactly the payload of their kind.
	ev = Event{Kind: TickUpdate, Bar: &Bar{}}
	assert.Error(t, ev.Validate())

	ev = Event{Kind: FillConfirmation}
	assert.Error(t, ev.Validate())

	// Ensure tick and fill events are timestamped by their payload.
	tickEv := NewTickEvent(&Tick{Market: "NIFTY50", Price: price, Time: start})
	assert.NoError(t, tickEv.Validate())
	assert.True(t, tickEv.Time().Equal(start))

	fillEv := NewFillEvent(&Fill{Market: "NIFTY50", Price: price, Time: start.Add(time.Minute)})
	assert.NoError(t, fillEv.Validate())
	assert.True(t, fillEv.Time().Equal(start.Add(time.Minute)))

	// Ensure unknown event kinds fail validation.
	ev = Event{Kind: EventKind(999)}
	assert.True(t, errors.Is(ev.Validate(), ErrUnknownEvent))
	assert.True(t, ev.Time().IsZero())
}
