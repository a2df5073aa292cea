package fetch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dnldd/pivotbreak/shared"
	"github.com/rs/zerolog"
)

const (
	// minCSVFields is the number of fields of a record without volume.
	minCSVFields = 5
)

// CSVSourceConfig represents the csv bar source configuration.
type CSVSourceConfig struct {
	// Market is the market of the loaded bars.
	Market string
	// Timeframe is the timeframe of the loaded bars.
	Timeframe shared.Timeframe
	// Location is the location timestamps without a utc offset are read in.
	Location *time.Location
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// CSVSource streams bars from csv records of the form
// timestamp,close,high,low,open,volume. Headers and malformed records are
// skipped.
type CSVSource struct {
	cfg     *CSVSourceConfig
	reader  *csv.Reader
	closer  io.Closer
	line    int
	skipped int
}

// Ensure CSVSource implements the BarSource interface.
var _ BarSource = (*CSVSource)(nil)

// NewCSVSource initializes a new csv bar source reading from the provided reader.
func NewCSVSource(r io.Reader, cfg *CSVSourceConfig) (*CSVSource, error) {
	if cfg.Location == nil {
		return nil, fmt.Errorf("csv source location cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("csv source logger cannot be nil")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	return &CSVSource{
		cfg:    cfg,
		reader: reader,
	}, nil
}

// OpenCSVSource initializes a new csv bar source reading from the file at the provided path.
func OpenCSVSource(path string, cfg *CSVSourceConfig) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv file with path '%s': %w", path, err)
	}

	src, err := NewCSVSource(f, cfg)
	if err != nil {
		f.Close()
		return nil, err
	}

	src.closer = f

	return src, nil
}

// skip counts and logs a malformed record.
func (c *CSVSource) skip(reason error) {
	c.skipped++
	c.cfg.Logger.Debug().Msgf("skipping %s %s record on line %d: %v", c.cfg.Market,
		c.cfg.Timeframe.String(), c.line, reason)
}

// Next returns the next well formed bar.
func (c *CSVSource) Next() (*shared.Bar, error) {
	for {
		record, err := c.reader.Read()
		c.line++
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}

			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				c.skip(err)
				continue
			}

			return nil, fmt.Errorf("reading csv record: %w", err)
		}

		if len(record) < minCSVFields {
			c.skip(fmt.Errorf("expected at least %d fields, got %d", minCSVFields, len(record)))
			continue
		}

		fields := barFields{
			timestamp: strings.TrimSpace(record[0]),
			close:     strings.TrimSpace(record[1]),
			high:      strings.TrimSpace(record[2]),
			low:       strings.TrimSpace(record[3]),
			open:      strings.TrimSpace(record[4]),
		}
		if len(record) > minCSVFields {
			fields.volume = strings.TrimSpace(record[5])
		}

		bar, err := parseBar(fields, c.cfg.Market, c.cfg.Timeframe, c.cfg.Location)
		if err != nil {
			c.skip(err)
			continue
		}

		return bar, nil
	}
}

// Skipped returns the number of records skipped so far.
func (c *CSVSource) Skipped() int {
	return c.skipped
}

// Close closes the underlying file, if the source opened one.
func (c *CSVSource) Close() error {
	if c.closer == nil {
		return nil
	}

	return c.closer.Close()
}
