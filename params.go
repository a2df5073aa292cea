package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// StrategyParams represents the tunable strategy parameters.
type StrategyParams struct {
	WindowSize   int
	ShortEnabled bool
	DeriveDaily  bool
	StopMargin   decimal.Decimal
	ProfitMargin decimal.Decimal
	SizeFraction decimal.Decimal
}

// strategyFile represents the strategy parameters yaml file. Decimal values
// are quoted strings.
type strategyFile struct {
	WindowSize   int    `yaml:"window_size"`
	ShortEnabled bool   `yaml:"short_enabled"`
	DeriveDaily  bool   `yaml:"derive_daily"`
	StopMargin   string `yaml:"stop_margin"`
	ProfitMargin string `yaml:"profit_margin"`
	SizeFraction string `yaml:"size_fraction"`
}

// loadStrategyParams loads the strategy parameters from the yaml file at the
// provided path. Parameters absent from the file keep their defaults.
func loadStrategyParams(path string) (*StrategyParams, error) {
	file := strategyFile{
		WindowSize:   4,
		DeriveDaily:  true,
		StopMargin:   "5",
		ProfitMargin: "60",
		SizeFraction: "1",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading strategy file: %w", err)
		}

		err = yaml.Unmarshal(data, &file)
		if err != nil {
			return nil, fmt.Errorf("parsing strategy file: %w", err)
		}
	}

	params := &StrategyParams{
		WindowSize:   file.WindowSize,
		ShortEnabled: file.ShortEnabled,
		DeriveDaily:  file.DeriveDaily,
	}

	var errs error
	fields := []struct {
		name  string
		raw   string
		value *decimal.Decimal
	}{
		{"stop_margin", file.StopMargin, &params.StopMargin},
		{"profit_margin", file.ProfitMargin, &params.ProfitMargin},
		{"size_fraction", file.SizeFraction, &params.SizeFraction},
	}

	for _, f := range fields {
		value, err := decimal.NewFromString(f.raw)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("parsing %s: %w", f.name, err))
			continue
		}

		*f.value = value
	}

	if errs != nil {
		return nil, errs
	}

	return params, nil
}
