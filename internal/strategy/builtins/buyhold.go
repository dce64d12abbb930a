// Package builtins provides the strategy implementations that ship with
// equisim: buy-and-hold, monthly dollar-cost averaging, and momentum
// rotation.
package builtins

import (
	"fmt"
	"log/slog"
	"time"

	"equisim/internal/domain"
	"equisim/internal/market"
	"equisim/internal/portfolio"
	"equisim/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*BuyAndHold)(nil)

// BuyAndHold buys a fixed dollar amount of each configured ticker on the
// first simulated day and never trades again.
type BuyAndHold struct {
	tickers   []string
	perTicker float64
	invested  bool
	log       *slog.Logger
}

// NewBuyAndHold creates a BuyAndHold strategy investing perTicker dollars in
// each ticker.
func NewBuyAndHold(tickers []string, perTicker float64) (*BuyAndHold, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("buy-and-hold: ticker list must not be empty")
	}
	if perTicker <= 0 {
		return nil, fmt.Errorf("buy-and-hold: investment per ticker must be positive, got %.2f", perTicker)
	}
	return &BuyAndHold{
		tickers:   tickers,
		perTicker: perTicker,
		log:       slog.Default().With("strategy", "buy-and-hold"),
	}, nil
}

// Name returns "buy-and-hold".
func (s *BuyAndHold) Name() string { return "buy-and-hold" }

// GenerateSignals emits whole-share buys sized to the configured investment
// on the first call. Tickers without a valid positive price on that day are
// skipped. Every later call returns an empty signal.
func (s *BuyAndHold) GenerateSignals(on time.Time, hist *market.History, _ portfolio.View) domain.Signal {
	if s.invested {
		return nil
	}
	s.invested = true

	signals := domain.Signal{}
	for _, ticker := range s.tickers {
		price, ok := hist.Close(ticker, on)
		if !ok || price <= 0 {
			s.log.Warn("no valid price, skipping initial buy",
				"ticker", ticker, "date", on.Format(time.DateOnly))
			continue
		}
		if qty := int(s.perTicker / price); qty > 0 {
			signals[ticker] = qty
		}
	}
	return signals
}
