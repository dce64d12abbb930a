// Command equisim runs one or more investment strategies against historical
// daily prices and reports how each performed against the benchmark.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"equisim/internal/config"
	"equisim/internal/domain"
	"equisim/internal/engine"
	"equisim/internal/market"
	"equisim/internal/portfolio"
	"equisim/internal/provider"
	"equisim/internal/report"
	"equisim/internal/store"
	"equisim/internal/strategy"
	"equisim/internal/strategy/builtins"
	"equisim/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "equisim: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))
	log := slog.Default()

	// Build the configured strategies up front: a bad strategy parameter is
	// fatal before any simulation step runs.
	registry := strategy.NewRegistry()
	for _, sc := range cfg.Strategies {
		s, err := buildStrategy(sc)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		registry.Register(s)
	}

	start, _ := cfg.StartDate()
	end, _ := cfg.EndDate()

	hist, err := loadHistory(cfg, tickersToFetch(cfg), start, end)
	if err != nil {
		return err
	}
	if hist.Len() == 0 {
		return fmt.Errorf("no price data for %s..%s", cfg.Simulation.StartDate, cfg.Simulation.EndDate)
	}
	log.Info("price history ready",
		"days", hist.Len(), "tickers", hist.Tickers(),
		"from", hist.Day(0).Format(time.DateOnly),
		"to", hist.Day(hist.Len()-1).Format(time.DateOnly))

	var summaries []report.Summary
	for _, name := range registry.List() {
		strat, _ := registry.Get(name)

		ledger, err := portfolio.NewLedger(cfg.Simulation.InitialCash)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		res := engine.New(ledger, strat, hist).Run()
		summaries = append(summaries, report.Summarize(res, cfg.Simulation.InitialCash))

		if err := writeResult(cfg.Output.Dir, res); err != nil {
			return fmt.Errorf("writing results for %s: %w", name, err)
		}
		log.Info("run finished", "strategy", name, "trades", len(res.Transactions))
	}

	var benchSummary *report.Summary
	if b := cfg.Simulation.Benchmark; b != "" {
		curve, err := report.BenchmarkCurve(hist, b, cfg.Simulation.InitialCash)
		if err != nil {
			log.Warn("benchmark unavailable", "ticker", b, "err", err)
		} else {
			s := report.SummarizeCurve("benchmark:"+b, curve, cfg.Simulation.InitialCash)
			benchSummary = &s
			if err := report.WriteCurveCSV(filepath.Join(cfg.Output.Dir, "benchmark-equity.csv"), curve); err != nil {
				return fmt.Errorf("writing benchmark curve: %w", err)
			}
		}
	}

	return report.RenderSummaries(os.Stdout, summaries, benchSummary)
}

// tickersToFetch collects every ticker the run needs: strategy universes,
// the benchmark, and the FX rate symbol.
func tickersToFetch(cfg *config.Config) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, sc := range cfg.Strategies {
		for _, t := range sc.Tickers {
			add(t)
		}
		add(sc.Ticker)
	}
	add(cfg.Simulation.Benchmark)
	add(cfg.Simulation.FX.RateSymbol)
	return out
}

func buildStrategy(sc config.StrategyConfig) (strategy.Strategy, error) {
	switch sc.Name {
	case "buy-and-hold":
		return builtins.NewBuyAndHold(sc.Tickers, sc.PerTicker)
	case "monthly-dca":
		return builtins.NewMonthlyDCA(sc.Ticker, sc.Amount)
	case "momentum-rotation":
		return builtins.NewMomentumRotation(sc.Tickers, sc.LookbackMonths, builtins.RebalanceFrequency(sc.Rebalance))
	default:
		return nil, fmt.Errorf("unknown strategy %q", sc.Name)
	}
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

// loadHistory materializes the full price history before the run starts,
// applying currency conversion when configured.
func loadHistory(cfg *config.Config, tickers []string, start, end time.Time) (*market.History, error) {
	cache, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var prov provider.Provider
	if cfg.Data.Offline {
		prov = provider.NewStoreProvider(cache)
	} else {
		a := cfg.Data.Alpaca
		remote := provider.NewAlpacaProvider(a.APIKey, a.APISecret, a.DataURL, a.Feed, a.RateLimitPerMin)
		prov = provider.NewCachingProvider(remote, cache)
	}

	ctx := context.Background()
	bars, err := prov.FetchBars(ctx, tickers, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching bars: %w", err)
	}

	hist, err := market.HistoryFromBars(bars)
	if err != nil {
		return nil, err
	}

	fx := cfg.Simulation.FX
	if fx.RateSymbol != "" && len(fx.Tickers) > 0 {
		rates := ratesFromBars(bars, fx.RateSymbol)
		hist, err = hist.ConvertCurrency(fx.Tickers, rates)
		if err != nil {
			return nil, fmt.Errorf("currency conversion: %w", err)
		}
	}
	return hist, nil
}

func ratesFromBars(bars []domain.Bar, rateSymbol string) []domain.CurvePoint {
	var rates []domain.CurvePoint
	for _, b := range bars {
		if b.Symbol == rateSymbol {
			rates = append(rates, domain.CurvePoint{Date: b.Timestamp, Value: b.Close})
		}
	}
	return rates
}

func writeResult(dir string, res *engine.Result) error {
	prefix := filepath.Join(dir, res.Strategy)
	if err := report.WriteCurveCSV(prefix+"-equity.csv", res.Equity); err != nil {
		return err
	}
	if err := report.WriteCurveCSV(prefix+"-cash.csv", res.Cash); err != nil {
		return err
	}
	return report.WriteTransactionsCSV(prefix+"-transactions.csv", res.Transactions)
}
