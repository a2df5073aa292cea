package fetch

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dnldd/pivotbreak/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/rs/zerolog/log"
)

const market = "NIFTY50"

const csvData = `Date,Close,High,Low,Open,Volume
2022-10-21 09:15:00+05:30,17605.5,17610,17590,17600,1200
2022-10-21 09:16:00+05:30,17608,17612,17601,17605.5,900
garbage
2022-10-21 09:17:00+05:30,abc,17612,17601,17605.5,900
2022-10-21 09:18:00,17609,17615,17604,17608
2022-10-21 09:19:00+05:30,17600,17590,17610,17608,10
"bad"quote,1,2,3,4,5
2022-10-21T09:20:00+05:30,17611,17613,17607,17609,300
`

func kolkata(t *testing.T) *time.Location {
	t.Helper()

	loc, err := shared.LoadLocation(shared.KolkataLocation)
	assert.NoError(t, err)

	return loc
}

func drain(t *testing.T, src BarSource) []*shared.Bar {
	t.Helper()

	bars := make([]*shared.Bar, 0)
	for {
		bar, err := src.Next()
		if errors.Is(err, io.EOF) {
			return bars
		}
		assert.NoError(t, err)
		bars = append(bars, bar)
	}
}

func TestCSVSource(t *testing.T) {
	loc := kolkata(t)

	// Ensure a csv source requires a location and a logger.
	_, err := NewCSVSource(strings.NewReader(csvData), &CSVSourceConfig{Market: market, Logger: &log.Logger})
	assert.Error(t, err)

	_, err = NewCSVSource(strings.NewReader(csvData), &CSVSourceConfig{Market: market, Location: loc})
	assert.Error(t, err)

	src, err := NewCSVSource(strings.NewReader(csvData), &CSVSourceConfig{
		Market:    market,
		Timeframe: shared.OneMinute,
		Location:  loc,
		Logger:    &log.Logger,
	})
	assert.NoError(t, err)

	// Ensure well formed records are loaded and malformed ones skipped.
	bars := drain(t, src)
	assert.Equal(t, len(bars), 4)
	assert.Equal(t, src.Skipped(), 5)

	first := bars[0]
	assert.Equal(t, first.Market, market)
	assert.Equal(t, first.Timeframe, shared.OneMinute)
	assert.Equal(t, first.Open.String(), "17600")
	assert.Equal(t, first.High.String(), "17610")
	assert.Equal(t, first.Low.String(), "17590")
	assert.Equal(t, first.Close.String(), "17605.5")
	assert.Equal(t, first.Volume.String(), "1200")
	assert.True(t, first.Start.Equal(time.Date(2022, 10, 21, 9, 15, 0, 0, loc)))
	assert.True(t, first.End.Equal(time.Date(2022, 10, 21, 9, 16, 0, 0, loc)))

	// Ensure timestamps without an offset are read in the configured location.
	local := bars[2]
	assert.True(t, local.Start.Equal(time.Date(2022, 10, 21, 9, 18, 0, 0, loc)))
	assert.Equal(t, local.Volume.String(), "0")

	// Ensure rfc3339 timestamps are supported.
	assert.True(t, bars[3].Start.Equal(time.Date(2022, 10, 21, 9, 20, 0, 0, loc)))

	// Ensure the source stays exhausted.
	_, err = src.Next()
	assert.True(t, errors.Is(err, io.EOF))
	assert.NoError(t, src.Close())
}

func TestOpenCSVSource(t *testing.T) {
	loc := kolkata(t)
	cfg := &CSVSourceConfig{
		Market:    market,
		Timeframe: shared.Daily,
		Location:  loc,
		Logger:    &log.Logger,
	}

	// Ensure opening a missing file fails.
	_, err := OpenCSVSource(filepath.Join(t.TempDir(), "missing.csv"), cfg)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "daily.csv")
	data := "2022-10-20 00:00:00,100,130,90,95,5000\n2022-10-21 00:00:00,120,125,98,100,4000\n"
	err = os.WriteFile(path, []byte(data), 0o600)
	assert.NoError(t, err)

	src, err := OpenCSVSource(path, cfg)
	assert.NoError(t, err)
	defer src.Close()

	// Ensure daily bars end at the next local midnight.
	bars := drain(t, src)
	assert.Equal(t, len(bars), 2)
	assert.True(t, bars[0].End.Equal(time.Date(2022, 10, 21, 0, 0, 0, 0, loc)))
	assert.Equal(t, bars[0].High.String(), "130")
	assert.Equal(t, src.Skipped(), 0)
}
