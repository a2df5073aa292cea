package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"
	_ "time/tzdata"

	"github.com/dnldd/pivotbreak/database"
	"github.com/dnldd/pivotbreak/fetch"
	"github.com/dnldd/pivotbreak/service"
	"github.com/dnldd/pivotbreak/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

// setupLogger configures the global logger.
func setupLogger(debug bool) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

// closer is implemented by sources holding open files.
type closer interface {
	Close() error
}

// barSources represents the bar sources configured for the backtest.
type barSources struct {
	sources    []fetch.BarSource
	market     string
	timeframes map[shared.Timeframe]bool
}

// loadSources creates the bar sources configured for the backtest.
func loadSources(cfg *Config, loc *time.Location) (*barSources, error) {
	set := &barSources{
		sources:    make([]fetch.BarSource, 0, 4),
		market:     cfg.Market,
		timeframes: make(map[shared.Timeframe]bool),
	}

	if cfg.HistoricDataFilepath != "" {
		historicDataLogger := log.With().Str("component", "historicdata").Logger()
		historicData, err := fetch.NewHistoricData(&fetch.HistoricDataConfig{
			FilePath: cfg.HistoricDataFilepath,
			Location: loc,
			Logger:   &historicDataLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating historic data: %w", err)
		}

		if set.market == "" {
			set.market = historicData.FetchMarket()
		}
		for _, timeframe := range []shared.Timeframe{shared.OneMinute, shared.FiveMinute, shared.Daily} {
			if historicData.HasTimeframe(timeframe) {
				set.timeframes[timeframe] = true
			}
		}
		set.sources = append(set.sources, historicData)
	}

	csvFiles := []struct {
		path      string
		timeframe shared.Timeframe
	}{
		{cfg.MinuteDataFilepath, shared.OneMinute},
		{cfg.FiveMinuteDataFilepath, shared.FiveMinute},
		{cfg.DailyDataFilepath, shared.Daily},
	}

	for _, file := range csvFiles {
		if file.path == "" {
			continue
		}

		csvLogger := log.With().Str("component", "csvsource").Str("timeframe", file.timeframe.String()).Logger()
		src, err := fetch.OpenCSVSource(file.path, &fetch.CSVSourceConfig{
			Market:    set.market,
			Timeframe: file.timeframe,
			Location:  loc,
			Logger:    &csvLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating %s csv source: %w", file.timeframe.String(), err)
		}

		set.timeframes[file.timeframe] = true
		set.sources = append(set.sources, src)
	}

	return set, nil
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Debug)

	params, err := loadStrategyParams(cfg.StrategyFilepath)
	if err != nil {
		log.Error().Msgf("loading strategy parameters: %v", err)
		os.Exit(1)
	}

	loc, err := shared.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error().Msgf("loading session location: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go handleTermination(ctx, cancel)

	set, err := loadSources(&cfg, loc)
	if err != nil {
		log.Error().Msgf("loading bar sources: %v", err)
		os.Exit(1)
	}
	defer func() {
		for _, src := range set.sources {
			if c, ok := src.(closer); ok {
				c.Close()
			}
		}
	}()

	// Minute bars drive the five minute consolidator whenever present, and the
	// daily one unless a daily source is provided.
	minute := set.timeframes[shared.OneMinute]
	deriveFiveMinute := minute
	deriveDaily := minute && params.DeriveDaily && !set.timeframes[shared.Daily]
	if !deriveDaily && !set.timeframes[shared.Daily] {
		log.Warn().Msgf("no daily bars available for %s, no pivot bands will be computed", set.market)
	}

	var journal database.Journal = database.NoopJournal{}
	if cfg.DBEndpoint != "" {
		dbLogger := log.With().Str("component", "database").Logger()
		journal, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			log.Error().Msgf("creating database: %v", err)
			return
		}
	}

	backtest, err := service.NewBacktest(&service.BacktestConfig{
		Market:           set.market,
		Sources:          set.sources,
		Location:         loc,
		WindowSize:       params.WindowSize,
		ShortEnabled:     params.ShortEnabled,
		DeriveFiveMinute: deriveFiveMinute,
		DeriveDaily:      deriveDaily,
		StopMargin:       params.StopMargin,
		ProfitMargin:     params.ProfitMargin,
		SizeFraction:     params.SizeFraction,
		Journal:          journal,
		HeartbeatSeconds: cfg.HeartbeatSeconds,
		Logger:           &log.Logger,
	})
	if err != nil {
		log.Error().Msgf("creating backtest service: %v", err)
		return
	}

	err = backtest.Run(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("backtest completed with errors")
	}
}
