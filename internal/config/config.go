// Package config loads and validates the YAML configuration that selects
// the data source, the simulation window, and the strategy variants to run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for an equisim run.
type Config struct {
	Logging    Logging          `yaml:"logging"`
	Data       Data             `yaml:"data"`
	Simulation Simulation       `yaml:"simulation"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Output     Output           `yaml:"output"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Data selects the price cache backend and the remote source.
type Data struct {
	// Source is the cache backend: "parquet", "sqlite", or "csv".
	Source string `yaml:"source"`
	// Dir is the cache directory for the parquet and csv backends.
	Dir string `yaml:"dir"`
	// SQLitePath is the database path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`
	// Offline disables remote fetching; only cached bars are used.
	Offline bool   `yaml:"offline"`
	Alpaca  Alpaca `yaml:"alpaca"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	DataURL         string `yaml:"data_url"`
	Feed            string `yaml:"feed"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Simulation defines the run window and starting conditions.
type Simulation struct {
	InitialCash float64 `yaml:"initial_cash"`
	StartDate   string  `yaml:"start_date"`
	EndDate     string  `yaml:"end_date"`
	// Benchmark is the ticker the equity curves are compared against.
	Benchmark string `yaml:"benchmark"`
	FX        FX     `yaml:"fx"`
}

// FX configures conversion of foreign-currency tickers into the reporting
// currency before the run.
type FX struct {
	// Tickers are the tickers whose close series get converted.
	Tickers []string `yaml:"tickers"`
	// RateSymbol is the exchange-rate series symbol in the price cache
	// (e.g. "EURUSD").
	RateSymbol string `yaml:"rate_symbol"`
}

// StrategyConfig selects one strategy variant and its parameters. Only the
// fields relevant to the named strategy are read.
type StrategyConfig struct {
	Name string `yaml:"name"`

	// buy-and-hold
	Tickers   []string `yaml:"tickers"`
	PerTicker float64  `yaml:"per_ticker"`

	// monthly-dca
	Ticker string  `yaml:"ticker"`
	Amount float64 `yaml:"amount"`

	// momentum-rotation (shares Tickers)
	LookbackMonths int    `yaml:"lookback_months"`
	Rebalance      string `yaml:"rebalance"`
}

// Output configures where result CSV files are written.
type Output struct {
	Dir string `yaml:"dir"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Data.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Data.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Data.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Data.Alpaca.DataURL = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Data.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Data.Alpaca.APISecret = v
	}
}

func setDefaults(cfg *Config) {
	if cfg.Data.Source == "" {
		cfg.Data.Source = "parquet"
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.SQLitePath == "" {
		cfg.Data.SQLitePath = "data/bars.db"
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "out"
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks everything that must be right before a simulation starts.
// Any error here is fatal: no simulation step runs after a validation
// failure.
func (c *Config) Validate() error {
	switch c.Data.Source {
	case "parquet", "sqlite", "csv":
	default:
		return fmt.Errorf("data.source must be parquet, sqlite, or csv, got %q", c.Data.Source)
	}

	if c.Simulation.InitialCash <= 0 {
		return fmt.Errorf("simulation.initial_cash must be positive, got %.2f", c.Simulation.InitialCash)
	}
	start, err := c.StartDate()
	if err != nil {
		return err
	}
	end, err := c.EndDate()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("simulation.end_date %s is before start_date %s",
			c.Simulation.EndDate, c.Simulation.StartDate)
	}

	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy must be configured")
	}
	return nil
}

// StartDate parses the configured simulation start date.
func (c *Config) StartDate() (time.Time, error) {
	return parseDate("simulation.start_date", c.Simulation.StartDate)
}

// EndDate parses the configured simulation end date.
func (c *Config) EndDate() (time.Time, error) {
	return parseDate("simulation.end_date", c.Simulation.EndDate)
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: invalid date %q, want YYYY-MM-DD", field, value)
	}
	return t, nil
}
