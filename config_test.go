package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []string
	}{
		{
			name: "valid config, csv data",
			cfg: Config{
				Market:             "NIFTY50",
				MinuteDataFilepath: "/tmp/minute.csv",
			},
			wantErr: nil,
		},
		{
			name: "valid config, historic data without market",
			cfg: Config{
				HistoricDataFilepath: "/tmp/historic.json",
			},
			wantErr: nil,
		},
		{
			name:    "no data filepath",
			cfg:     Config{Market: "NIFTY50"},
			wantErr: []string{"no data filepath provided for backtest"},
		},
		{
			name: "csv data without market",
			cfg: Config{
				DailyDataFilepath: "/tmp/daily.csv",
			},
			wantErr: []string{"market cannot be an empty string for csv data"},
		},
		{
			name: "negative heartbeat and user without endpoint",
			cfg: Config{
				Market:             "NIFTY50",
				MinuteDataFilepath: "/tmp/minute.csv",
				HeartbeatSeconds:   -5,
				DBUser:             "user",
			},
			wantErr: []string{
				"heartbeat seconds cannot be negative",
				"database user provided without an endpoint",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
				return
			}

			if err == nil {
				t.Errorf("expected error(s) %v, got none", tt.wantErr)
				return
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("expected error to contain %q, got %v", want, err)
				}
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	origArgs := os.Args
	defer func() {
		os.Args = origArgs
	}()

	tests := []struct {
		name        string
		env         map[string]string
		args        []string
		expectErr   bool
		expectInErr []string
		expectCfg   Config
	}{
		{
			name: "all from env",
			env: map[string]string{
				"market":             "NIFTY50",
				"minutedatafilepath": "/tmp/minute.csv",
				"heartbeatseconds":   "10",
				"debug":              "true",
			},
			args:      []string{"cmd"},
			expectErr: false,
			expectCfg: Config{
				Market:             "NIFTY50",
				MinuteDataFilepath: "/tmp/minute.csv",
				HeartbeatSeconds:   10,
				Debug:              true,
			},
		},
		{
			name: "all from flags",
			env:  map[string]string{},
			args: []string{"cmd", "-market=NIFTY50", "-dailydatafilepath=/tmp/daily.csv",
				"-timezone=Asia/Kolkata", "-dbendpoint=http://localhost:4001"},
			expectErr: false,
			expectCfg: Config{
				Market:            "NIFTY50",
				DailyDataFilepath: "/tmp/daily.csv",
				Timezone:          "Asia/Kolkata",
				DBEndpoint:        "http://localhost:4001",
			},
		},
		{
			name: "flags override env",
			env: map[string]string{
				"market":               "BANKNIFTY",
				"historicdatafilepath": "/tmp/historic.json",
			},
			args:      []string{"cmd", "-market=NIFTY50"},
			expectErr: false,
			expectCfg: Config{
				Market:               "NIFTY50",
				HistoricDataFilepath: "/tmp/historic.json",
			},
		},
		{
			name:        "missing data filepath",
			env:         map[string]string{},
			args:        []string{"cmd", "-market=NIFTY50"},
			expectErr:   true,
			expectInErr: []string{"no data filepath provided for backtest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flags for each test
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			os.Args = tt.args

			var cfg Config
			err := loadConfig(&cfg, filepath.Join(t.TempDir(), ".env"))

			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				for _, want := range tt.expectInErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			assert.Equal(t, cfg.Market, tt.expectCfg.Market)
			assert.Equal(t, cfg.MinuteDataFilepath, tt.expectCfg.MinuteDataFilepath)
			assert.Equal(t, cfg.DailyDataFilepath, tt.expectCfg.DailyDataFilepath)
			assert.Equal(t, cfg.HistoricDataFilepath, tt.expectCfg.HistoricDataFilepath)
			assert.Equal(t, cfg.Timezone, tt.expectCfg.Timezone)
			assert.Equal(t, cfg.DBEndpoint, tt.expectCfg.DBEndpoint)
			assert.Equal(t, cfg.HeartbeatSeconds, tt.expectCfg.HeartbeatSeconds)
			assert.Equal(t, cfg.Debug, tt.expectCfg.Debug)
		})
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	origArgs := os.Args
	defer func() {
		os.Args = origArgs
	}()

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	os.Args = []string{"cmd"}

	// Register the variables with the test so they are restored afterwards.
	t.Setenv("market", "")
	t.Setenv("minutedatafilepath", "")
	os.Unsetenv("market")
	os.Unsetenv("minutedatafilepath")

	path := filepath.Join(t.TempDir(), ".env")
	err := os.WriteFile(path, []byte("market=NIFTY50\nminutedatafilepath=/tmp/minute.csv\n"), 0o600)
	assert.NoError(t, err)

	// Ensure .env values are used as flag defaults.
	var cfg Config
	err = loadConfig(&cfg, path)
	assert.NoError(t, err)
	assert.Equal(t, cfg.Market, "NIFTY50")
	assert.Equal(t, cfg.MinuteDataFilepath, "/tmp/minute.csv")
}

func TestLoadStrategyParams(t *testing.T) {
	// Ensure defaults are used without a strategy file.
	params, err := loadStrategyParams("")
	assert.NoError(t, err)
	assert.Equal(t, params.WindowSize, 4)
	assert.False(t, params.ShortEnabled)
	assert.True(t, params.DeriveDaily)
	assert.Equal(t, params.StopMargin.String(), "5")
	assert.Equal(t, params.ProfitMargin.String(), "60")
	assert.Equal(t, params.SizeFraction.String(), "1")

	// Ensure parameters can be overridden by a strategy file.
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	data := "window_size: 3\nshort_enabled: true\nderive_daily: false\nstop_margin: \"7.5\"\nsize_fraction: 0.5\n"
	err = os.WriteFile(path, []byte(data), 0o600)
	assert.NoError(t, err)

	params, err = loadStrategyParams(path)
	assert.NoError(t, err)
	assert.Equal(t, params.WindowSize, 3)
	assert.True(t, params.ShortEnabled)
	assert.False(t, params.DeriveDaily)
	assert.Equal(t, params.StopMargin.String(), "7.5")
	assert.Equal(t, params.ProfitMargin.String(), "60")
	assert.Equal(t, params.SizeFraction.String(), "0.5")

	// Ensure invalid decimals are rejected.
	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	err = os.WriteFile(invalid, []byte("stop_margin: five\nprofit_margin: sixty\n"), 0o600)
	assert.NoError(t, err)

	_, err = loadStrategyParams(invalid)
	assert.Error(t, err)

	// Ensure missing strategy files are rejected.
	_, err = loadStrategyParams(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRegisterFlag(t *testing.T) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	var cfg Config
	var markets []string
	var name string

	// Ensure unsupported types and non-pointer values are rejected.
	err := cfg.registerFlag("markets", &markets, "unsupported slice flag")
	assert.Error(t, err)

	err = cfg.registerFlag("value", name, "non-pointer flag")
	assert.Error(t, err)

	// Ensure flags are registered once.
	err = cfg.registerFlag("name", &name, "string flag")
	assert.NoError(t, err)
	err = cfg.registerFlag("name", &name, "string flag")
	assert.NoError(t, err)
	assert.True(t, flag.Lookup("name") != nil)
}
