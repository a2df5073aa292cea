package fetch

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dnldd/pivotbreak/shared"
	"github.com/shopspring/decimal"
)

// BarSource streams bars in time order. Next returns io.EOF once exhausted.
type BarSource interface {
	Next() (*shared.Bar, error)
}

// SliceSource streams bars held in memory.
type SliceSource struct {
	bars []*shared.Bar
	idx  int
}

// Ensure SliceSource implements the BarSource interface.
var _ BarSource = (*SliceSource)(nil)

// NewSliceSource initializes a new in-memory bar source.
func NewSliceSource(bars []*shared.Bar) *SliceSource {
	return &SliceSource{bars: bars}
}

// Next returns the next bar.
func (s *SliceSource) Next() (*shared.Bar, error) {
	if s.idx >= len(s.bars) {
		return nil, io.EOF
	}

	bar := s.bars[s.idx]
	s.idx++

	return bar, nil
}

// Merger merges several bar sources into a single chronological event
// stream. Bars are ordered by their end time; bars ending together are
// ordered finer timeframe first.
type Merger struct {
	sources []BarSource
	heads   []*shared.Bar
	primed  bool
}

// Merge initializes a lazy merge of the provided sources.
func Merge(sources ...BarSource) *Merger {
	return &Merger{
		sources: sources,
		heads:   make([]*shared.Bar, len(sources)),
	}
}

// advance reads the next bar of the source at the provided index.
func (m *Merger) advance(idx int) error {
	bar, err := m.sources[idx].Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			m.heads[idx] = nil
			return nil
		}

		return fmt.Errorf("reading bar source %d: %w", idx, err)
	}

	m.heads[idx] = bar

	return nil
}

// precedes checks whether bar a is dispatched before bar b.
func precedes(a *shared.Bar, b *shared.Bar) bool {
	switch {
	case a.End.Before(b.End):
		return true
	case a.End.After(b.End):
		return false
	default:
		return a.Timeframe.IsFinerThan(b.Timeframe)
	}
}

// Next returns the next event of the merged stream.
func (m *Merger) Next() (shared.Event, error) {
	if !m.primed {
		for idx := range m.sources {
			err := m.advance(idx)
			if err != nil {
				return shared.Event{}, err
			}
		}

		m.primed = true
	}

	next := -1
	for idx, bar := range m.heads {
		if bar == nil {
			continue
		}

		if next == -1 || precedes(bar, m.heads[next]) {
			next = idx
		}
	}

	if next == -1 {
		return shared.Event{}, io.EOF
	}

	bar := m.heads[next]
	err := m.advance(next)
	if err != nil {
		return shared.Event{}, err
	}

	return shared.NewBarEvent(bar)
}

// layouts are the supported timestamp layouts carrying a utc offset.
var layouts = []string{shared.OffsetDateLayout, time.RFC3339}

// parseTimestamp parses the provided timestamp. Timestamps without a utc
// offset are interpreted in the provided location.
func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
	}

	t, err := time.ParseInLocation(shared.DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp '%s': %w", value, err)
	}

	return t, nil
}

// barFields represents the raw fields of a bar record.
type barFields struct {
	timestamp string
	open      string
	high      string
	low       string
	close     string
	volume    string
}

// parseBar creates a bar from the provided raw fields. An empty volume
// defaults to zero.
func parseBar(fields barFields, market string, timeframe shared.Timeframe, loc *time.Location) (*shared.Bar, error) {
	start, err := parseTimestamp(fields.timestamp, loc)
	if err != nil {
		return nil, err
	}

	values := make([]decimal.Decimal, 4)
	for idx, raw := range []string{fields.open, fields.high, fields.low, fields.close} {
		values[idx], err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing price '%s': %w", raw, err)
		}
	}

	volume := decimal.Zero
	if fields.volume != "" {
		volume, err = decimal.NewFromString(fields.volume)
		if err != nil {
			return nil, fmt.Errorf("parsing volume '%s': %w", fields.volume, err)
		}
	}

	open, high, low, close := values[0], values[1], values[2], values[3]

	return shared.NewBar(market, timeframe, start, timeframe.PeriodEnd(start), open, high, low, close, volume)
}
