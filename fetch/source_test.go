package fetch

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dnldd/pivotbreak/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

// failingSource fails after streaming its bars.
type failingSource struct {
	bars []*shared.Bar
}

func (f *failingSource) Next() (*shared.Bar, error) {
	if len(f.bars) == 0 {
		return nil, errors.New("connection reset")
	}

	bar := f.bars[0]
	f.bars = f.bars[1:]

	return bar, nil
}

func bar(t *testing.T, timeframe shared.Timeframe, start time.Time) *shared.Bar {
	t.Helper()

	price := decimal.NewFromInt(100)
	b, err := shared.NewBar(market, timeframe, start, timeframe.PeriodEnd(start), price, price, price, price,
		decimal.Zero)
	assert.NoError(t, err)

	return b
}

func TestMerge(t *testing.T) {
	loc := kolkata(t)
	open := time.Date(2022, 10, 21, 9, 15, 0, 0, loc)

	minutes := make([]*shared.Bar, 0, 5)
	for idx := range 5 {
		minutes = append(minutes, bar(t, shared.OneMinute, open.Add(time.Minute*time.Duration(idx))))
	}

	fiveMinutes := []*shared.Bar{bar(t, shared.FiveMinute, open)}
	daily := []*shared.Bar{bar(t, shared.Daily, time.Date(2022, 10, 20, 0, 0, 0, 0, loc))}

	merger := Merge(NewSliceSource(fiveMinutes), NewSliceSource(minutes), NewSliceSource(daily),
		NewSliceSource(nil))

	kinds := make([]shared.EventKind, 0)
	for {
		ev, err := merger.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		assert.NoError(t, err)
		assert.NoError(t, ev.Validate())
		kinds = append(kinds, ev.Kind)
	}

	// Ensure bars are merged by end time with finer timeframes first on ties.
	want := []shared.EventKind{
		shared.DailyBar,
		shared.MinuteBar, shared.MinuteBar, shared.MinuteBar, shared.MinuteBar, shared.MinuteBar,
		shared.FiveMinuteBar,
	}
	assert.Equal(t, kinds, want)

	// Ensure an exhausted merge stays exhausted.
	_, err := merger.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestMergeSourceFailure(t *testing.T) {
	loc := kolkata(t)
	open := time.Date(2022, 10, 21, 9, 15, 0, 0, loc)

	merger := Merge(&failingSource{bars: []*shared.Bar{bar(t, shared.OneMinute, open)}})

	// Ensure source failures are surfaced.
	_, err := merger.Next()
	assert.Error(t, err)
	assert.False(t, errors.Is(err, io.EOF))
}

func TestParseTimestamp(t *testing.T) {
	loc := kolkata(t)
	want := time.Date(2022, 10, 21, 9, 15, 0, 0, loc)

	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{
			name:  "offset layout",
			value: "2022-10-21 09:15:00+05:30",
		},
		{
			name:  "rfc3339",
			value: "2022-10-21T03:45:00Z",
		},
		{
			name:  "local layout",
			value: "2022-10-21 09:15:00",
		},
		{
			name:    "unknown layout",
			value:   "21/10/2022 09:15",
			wantErr: true,
		},
	}

	for _, test := range tests {
		got, err := parseTimestamp(test.value, loc)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: expected error %v, got %v", test.name, test.wantErr, err)
			continue
		}
		if !test.wantErr && !got.Equal(want) {
			t.Errorf("%s: expected %v, got %v", test.name, want, got)
		}
	}
}
