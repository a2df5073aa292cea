package fetch

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dnldd/pivotbreak/shared"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// HistoricDataConfig represents the historic data source configuration.
type HistoricDataConfig struct {
	// FilePath is the filepath to the historic market data.
	FilePath string
	// Location is the location dates without a utc offset are read in.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// HistoricData represents multi timeframe historic market data.
type HistoricData struct {
	cfg        *HistoricDataConfig
	market     string
	bars       []*shared.Bar
	idx        int
	timeframes []string
	counts     map[shared.Timeframe]int
	skipped    int
}

// Ensure HistoricData implements the BarSource interface.
var _ BarSource = (*HistoricData)(nil)

// loadHistoricData loads the historic data bytes from the provided file path.
func loadHistoricData(filepath string) (*gjson.Result, error) {
	readb, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading historic data from file with path '%s': %w", filepath, err)
	}

	if !gjson.ValidBytes(readb) {
		return nil, fmt.Errorf("historic data file with path '%s' is not valid json", filepath)
	}

	b := gjson.ParseBytes(readb)

	return &b, nil
}

// NewHistoricData initializes a new historic data source.
func NewHistoricData(cfg *HistoricDataConfig) (*HistoricData, error) {
	if cfg.Location == nil {
		return nil, fmt.Errorf("historic data location cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("historic data logger cannot be nil")
	}

	b, err := loadHistoricData(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("loading historic data: %w", err)
	}

	market := b.Get("market").String()
	if market == "" {
		return nil, fmt.Errorf("no market provided for historic data")
	}

	historicData := HistoricData{
		cfg:    cfg,
		market: market,
		counts: make(map[shared.Timeframe]int),
	}

	timeframes := []shared.Timeframe{shared.OneMinute, shared.FiveMinute, shared.Daily}
	for _, timeframe := range timeframes {
		data := b.Get(timeframe.String()).Array()
		if len(data) == 0 {
			continue
		}

		for idx := range data {
			entry := data[idx]
			fields := barFields{
				timestamp: entry.Get("date").String(),
				open:      entry.Get("open").String(),
				high:      entry.Get("high").String(),
				low:       entry.Get("low").String(),
				close:     entry.Get("close").String(),
				volume:    entry.Get("volume").String(),
			}

			bar, err := parseBar(fields, market, timeframe, cfg.Location)
			if err != nil {
				historicData.skipped++
				cfg.Logger.Debug().Msgf("skipping %s %s entry %d: %v", market, timeframe.String(), idx, err)
				continue
			}

			historicData.bars = append(historicData.bars, bar)
			historicData.counts[timeframe]++
		}

		historicData.timeframes = append(historicData.timeframes, timeframe.String())
	}

	if len(historicData.bars) == 0 {
		return nil, fmt.Errorf("no bars found in historic data")
	}

	// Sort the multi timeframe data by end time and timeframe.
	slices.SortStableFunc(historicData.bars, func(a, b *shared.Bar) int {
		switch {
		case precedes(a, b):
			return -1
		case precedes(b, a):
			return 1
		default:
			return 0
		}
	})

	first := historicData.FetchStartTime()
	last := historicData.FetchEndTime()
	cfg.Logger.Info().Msgf("loaded historical %s [%s] data covering %.2f hours, from %s, to %s",
		market, strings.Join(historicData.timeframes, ","), last.Sub(first).Hours(),
		first.Format(time.RFC1123), last.Format(time.RFC1123))

	return &historicData, nil
}

// Next returns the next bar of the historic data.
func (h *HistoricData) Next() (*shared.Bar, error) {
	if h.idx >= len(h.bars) {
		return nil, io.EOF
	}

	bar := h.bars[h.idx]
	h.idx++

	return bar, nil
}

// FetchMarket returns the historic data market.
func (h *HistoricData) FetchMarket() string {
	return h.market
}

// FetchStartTime returns the start time of the loaded historic data.
func (h *HistoricData) FetchStartTime() time.Time {
	return h.bars[0].Start
}

// FetchEndTime returns the end time of the loaded historic data.
func (h *HistoricData) FetchEndTime() time.Time {
	return h.bars[len(h.bars)-1].End
}

// HasTimeframe checks whether bars of the provided timeframe were loaded.
func (h *HistoricData) HasTimeframe(timeframe shared.Timeframe) bool {
	return h.counts[timeframe] > 0
}

// Skipped returns the number of malformed entries skipped.
func (h *HistoricData) Skipped() int {
	return h.skipped
}
