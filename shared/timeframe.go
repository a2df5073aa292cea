package shared

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the format layout for parsing dates.
	DateLayout = "2006-01-02 15:04:05"
	// OffsetDateLayout is the format layout for parsing dates carrying a utc offset.
	OffsetDateLayout = "2006-01-02 15:04:05-07:00"
	// KolkataLocation is the default session location.
	KolkataLocation = "Asia/Kolkata"
)

// Timeframe represents the market data time period.
type Timeframe int

const (
	OneMinute Timeframe = iota
	FiveMinute
	Daily
)

// String stringifies the provided timeframe.
func (t Timeframe) String() string {
	switch t {
	case OneMinute:
		return "1m"
	case FiveMinute:
		return "5m"
	case Daily:
		return "1D"
	default:
		return "unknown"
	}
}

// Duration returns the nominal length of the timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case OneMinute:
		return time.Minute
	case FiveMinute:
		return time.Minute * 5
	case Daily:
		return time.Hour * 24
	default:
		return 0
	}
}

// IsFinerThan checks whether the timeframe has a shorter period than the provided one.
func (t Timeframe) IsFinerThan(other Timeframe) bool {
	return t.Duration() > 0 && t.Duration() < other.Duration()
}

// PeriodStart returns the start of the timeframe period the provided time falls in.
// Intraday periods are aligned to local midnight, daily periods are local calendar days.
func (t Timeframe) PeriodStart(at time.Time, loc *time.Location) (time.Time, error) {
	dur := t.Duration()
	if dur == 0 {
		return time.Time{}, fmt.Errorf("unknown timeframe provided: %s", t.String())
	}

	local := at.In(loc)
	year, month, day := local.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t == Daily {
		return midnight, nil
	}

	elapsed := local.Sub(midnight)
	return midnight.Add(elapsed - elapsed%dur), nil
}

// PeriodEnd returns the end of the timeframe period starting at the provided time.
func (t Timeframe) PeriodEnd(start time.Time) time.Time {
	if t == Daily {
		return start.AddDate(0, 0, 1)
	}

	return start.Add(t.Duration())
}

// LoadLocation loads the named session location, defaulting to kolkata.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = KolkataLocation
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading %s timezone: %w", name, err)
	}

	return loc, nil
}
