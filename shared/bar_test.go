package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

func TestNewBar(t *testing.T) {
	market := "NIFTY50"
	start := time.Date(2022, 10, 21, 9, 15, 0, 0, time.UTC)
	price := decimal.NewFromInt(100)

	// Ensure a bar cannot end before or at its start.
	_, err := NewBar(market, OneMinute, start, start, price, price, price, price, decimal.Zero)
	assert.True(t, errors.Is(err, ErrInvalidBar))

	_, err = NewBar(market, OneMinute, start, start.Add(-time.Minute), price, price, price, price, decimal.Zero)
	assert.True(t, errors.Is(err, ErrInvalidBar))

	// Ensure open and close must lie within the bar's range.
	tests := []struct {
		name                   string
		open, high, low, close string
	}{
		{"high below low", "100", "90", "110", "100"},
		{"open above high", "111", "110", "90", "100"},
		{"open below low", "89", "110", "90", "100"},
		{"close above high", "100", "110", "90", "111"},
		{"close below low", "100", "110", "90", "89"},
	}

	for _, test := range tests {
		_, err := NewBar(market, OneMinute, start, start.Add(time.Minute),
			decimal.RequireFromString(test.open), decimal.RequireFromString(test.high),
			decimal.RequireFromString(test.low), decimal.RequireFromString(test.close), decimal.Zero)
		if !errors.Is(err, ErrInvalidBar) {
			t.Errorf("%s: expected invalid bar error, got %v", test.name, err)
		}
	}

	// Ensure a valid bar can be created.
	bar, err := NewBar(market, OneMinute, start, start.Add(time.Minute), price, price, price, price, decimal.Zero)
	assert.NoError(t, err)
	assert.Equal(t, bar.Market, market)
	assert.Equal(t, bar.Timeframe, OneMinute)
}

func TestFetchSentiment(t *testing.T) {
	tests := []struct {
		name    string
		bar     Bar
		want Sentiment
	}{
		{
			name: "neutral bar",
			bar: Bar{
				Open:  decimal.NewFromInt(5),
				Close: decimal.NewFromInt(5),
				High:  decimal.NewFromInt(9),
				Low:   decimal.NewFromInt(1),
			},
			want: Neutral,
		},
		{
			name: "bullish bar",
			bar: Bar{
				Open:  decimal.NewFromInt(5),
				Close: decimal.NewFromInt(15),
				High:  decimal.NewFromInt(20),
				Low:   decimal.NewFromInt(1),
			},
			want: Bullish,
		},
		{
			name: "bearish bar",
			bar: Bar{
				Open:  decimal.NewFromInt(15),
				Close: decimal.NewFromInt(5),
				High:  decimal.NewFromInt(20),
				Low:   decimal.NewFromInt(1),
			},
			want: Bearish,
		},
		{
			name: "bullish by a fraction",
			bar: Bar{
				Open:  decimal.RequireFromString("7748.70"),
				Close: decimal.RequireFromString("7748.71"),
				High:  decimal.RequireFromString("7799.9"),
				Low:   decimal.RequireFromString("7722.65"),
			},
			want: Bullish,
		},
	}

	for _, test := range tests {
		sentiment := test.bar.FetchSentiment()
		if sentiment != test.want {
			t.Errorf("%s: expected %s sentiment, got %s",
				test.name, test.want.String(), sentiment.String())
		}
	}
}

func TestSentimentString(t *testing.T) {
	assert.Equal(t, Neutral.String(), "neutral")
	assert.Equal(t, Bullish.String(), "bullish")
	assert.Equal(t, Bearish.String(), "bearish")
	assert.Equal(t, Sentiment(999).String(), "unknown")
}
