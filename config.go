package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
	// Market is the backtested market.
	Market string
	// MinuteDataFilepath is the filepath to the minute bar csv data.
	MinuteDataFilepath string
	// FiveMinuteDataFilepath is the filepath to the five minute bar csv data.
	FiveMinuteDataFilepath string
	// DailyDataFilepath is the filepath to the daily bar csv data.
	DailyDataFilepath string
	// HistoricDataFilepath is the filepath to the multi timeframe json data.
	HistoricDataFilepath string
	// StrategyFilepath is the filepath to the strategy parameters yaml file.
	StrategyFilepath string
	// Timezone is the session timezone of the market.
	Timezone string
	// DBEndpoint is the journal database endpoint. Journaling is disabled when empty.
	DBEndpoint string
	// DBUser is the journal database user.
	DBUser string
	// DBPass is the journal database user pass.
	DBPass string
	// HeartbeatSeconds is the interval between replay progress logs.
	HeartbeatSeconds int
	// Debug enables debug logging.
	Debug bool

	registeredFlags map[string]bool
}

// csvFilepaths returns the configured csv data filepaths.
func (cfg *Config) csvFilepaths() []string {
	paths := make([]string, 0, 3)
	for _, path := range []string{cfg.MinuteDataFilepath, cfg.FiveMinuteDataFilepath, cfg.DailyDataFilepath} {
		if path != "" {
			paths = append(paths, path)
		}
	}

	return paths
}

// Validate asserts the config sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	csvPaths := cfg.csvFilepaths()
	if len(csvPaths) == 0 && cfg.HistoricDataFilepath == "" {
		errs = errors.Join(errs, fmt.Errorf("no data filepath provided for backtest"))
	}
	if len(csvPaths) > 0 && cfg.Market == "" {
		errs = errors.Join(errs, fmt.Errorf("market cannot be an empty string for csv data"))
	}
	if cfg.HeartbeatSeconds < 0 {
		errs = errors.Join(errs, fmt.Errorf("heartbeat seconds cannot be negative"))
	}
	if cfg.DBEndpoint == "" && cfg.DBUser != "" {
		errs = errors.Join(errs, fmt.Errorf("database user provided without an endpoint"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"market", &cfg.Market, "the backtested market"},
		{"minutedatafilepath", &cfg.MinuteDataFilepath, "the minute bar csv data filepath"},
		{"fiveminutedatafilepath", &cfg.FiveMinuteDataFilepath, "the five minute bar csv data filepath"},
		{"dailydatafilepath", &cfg.DailyDataFilepath, "the daily bar csv data filepath"},
		{"historicdatafilepath", &cfg.HistoricDataFilepath, "the multi timeframe json data filepath"},
		{"strategyfilepath", &cfg.StrategyFilepath, "the strategy parameters yaml filepath"},
		{"timezone", &cfg.Timezone, "the market session timezone"},
		{"dbendpoint", &cfg.DBEndpoint, "the journal database endpoint"},
		{"dbuser", &cfg.DBUser, "the journal database user"},
		{"dbpass", &cfg.DBPass, "the journal database pass"},
		{"heartbeatseconds", &cfg.HeartbeatSeconds, "the interval between replay progress logs"},
		{"debug", &cfg.Debug, "the debug logging flag"},
	}

	for _, f := range flags {
		err = cfg.registerFlag(f.name, f.value, f.usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
