// Command equisim-fetch populates the local price cache with daily bars from
// the Alpaca market-data API, so simulations can run offline afterwards.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"equisim/internal/config"
	"equisim/internal/provider"
	"equisim/internal/store"
	"equisim/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols to fetch (e.g. SPY,AAPL)")
	startFlag := flag.String("start", "", "Start date (YYYY-MM-DD), defaults to simulation.start_date")
	endFlag := flag.String("end", "", "End date (YYYY-MM-DD), defaults to simulation.end_date")
	flag.Parse()

	if err := run(*configPath, *symbolsFlag, *startFlag, *endFlag); err != nil {
		fmt.Fprintf(os.Stderr, "equisim-fetch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, symbolsFlag, startFlag, endFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	symbols := splitSymbols(symbolsFlag)
	if len(symbols) == 0 {
		return fmt.Errorf("-symbols is required")
	}
	start, end, err := dateRange(cfg, startFlag, endFlag)
	if err != nil {
		return err
	}

	cache, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	a := cfg.Data.Alpaca
	remote := provider.NewAlpacaProvider(a.APIKey, a.APISecret, a.DataURL, a.Feed, a.RateLimitPerMin)

	ctx := context.Background()
	bars, err := remote.FetchBars(ctx, symbols, start, end)
	if err != nil {
		return fmt.Errorf("fetching bars: %w", err)
	}
	if err := cache.WriteBars(ctx, bars); err != nil {
		return fmt.Errorf("writing bars: %w", err)
	}

	slog.Info("cache updated", "symbols", len(symbols), "bars", len(bars),
		"start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))
	return nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}

func dateRange(cfg *config.Config, startFlag, endFlag string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if startFlag != "" {
		start, err = time.ParseInLocation(time.DateOnly, startFlag, time.UTC)
	} else {
		start, err = cfg.StartDate()
	}
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if endFlag != "" {
		end, err = time.ParseInLocation(time.DateOnly, endFlag, time.UTC)
	} else {
		end, err = cfg.EndDate()
	}
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return start, end, nil
}

func openStore(cfg *config.Config) (store.BarStore, func() error, error) {
	switch cfg.Data.Source {
	case "parquet":
		return store.NewParquetStore(cfg.Data.Dir), nil, nil
	case "csv":
		return store.NewCSVStore(cfg.Data.Dir), nil, nil
	case "sqlite":
		s, err := store.NewSQLiteStore(cfg.Data.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported data source %q", cfg.Data.Source)
}
