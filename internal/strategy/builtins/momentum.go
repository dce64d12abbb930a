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

// RebalanceFrequency controls how often MomentumRotation re-evaluates its
// holdings.
type RebalanceFrequency string

const (
	RebalanceDaily   RebalanceFrequency = "daily"
	RebalanceWeekly  RebalanceFrequency = "weekly"
	RebalanceMonthly RebalanceFrequency = "monthly"
)

// Compile-time interface check.
var _ strategy.Strategy = (*MomentumRotation)(nil)

// MomentumRotation periodically ranks the configured tickers by simple
// return over a trailing lookback window, liquidates everything except the
// winner, and concentrates the whole portfolio in it.
type MomentumRotation struct {
	tickers        []string
	lookbackMonths int
	frequency      RebalanceFrequency
	log            *slog.Logger
}

// NewMomentumRotation creates a momentum rotation strategy. The lookback
// must be a positive number of months and the frequency one of daily,
// weekly, or monthly.
func NewMomentumRotation(tickers []string, lookbackMonths int, frequency RebalanceFrequency) (*MomentumRotation, error) {
	if len(tickers) == 0 {
		return nil, fmt.Errorf("momentum-rotation: ticker list must not be empty")
	}
	if lookbackMonths <= 0 {
		return nil, fmt.Errorf("momentum-rotation: lookback must be a positive number of months, got %d", lookbackMonths)
	}
	switch frequency {
	case RebalanceDaily, RebalanceWeekly, RebalanceMonthly:
	default:
		return nil, fmt.Errorf("momentum-rotation: unsupported rebalance frequency %q", frequency)
	}
	return &MomentumRotation{
		tickers:        tickers,
		lookbackMonths: lookbackMonths,
		frequency:      frequency,
		log:            slog.Default().With("strategy", "momentum-rotation"),
	}, nil
}

// Name returns "momentum-rotation".
func (s *MomentumRotation) Name() string { return "momentum-rotation" }

// GenerateSignals rebalances on qualifying days: it scores each ticker by
// simple return over the trailing lookback window, picks the best (ties go
// to the ticker listed first in the configured list), emits full sells for
// every other holding, and sizes the winner to the pre-trade portfolio
// value at current prices. The sizing deliberately assumes the same-day
// liquidation proceeds are spendable before they settle.
func (s *MomentumRotation) GenerateSignals(on time.Time, hist *market.History, view portfolio.View) domain.Signal {
	if !s.isRebalanceDay(on, hist) {
		return nil
	}
	day := on.Format(time.DateOnly)

	start := market.AddMonths(on, -s.lookbackMonths)
	end := market.Day(on)
	if !hist.HasDataBetween(start, end) {
		s.log.Warn("no data in lookback window", "date", day, "lookbackMonths", s.lookbackMonths)
		return nil
	}

	// Rank by simple return over the window. Tickers with fewer than two
	// valid prices cannot be scored.
	winner := ""
	var winnerScore float64
	for _, ticker := range s.tickers {
		prices := hist.ValidPrices(ticker, start, end)
		if len(prices) < 2 {
			continue
		}
		score := (prices[len(prices)-1] - prices[0]) / prices[0]
		if winner == "" || score > winnerScore {
			winner = ticker
			winnerScore = score
		}
	}
	if winner == "" {
		s.log.Warn("no ticker has a computable momentum score", "date", day)
		return nil
	}
	s.log.Info("momentum winner", "date", day, "ticker", winner,
		"return", fmt.Sprintf("%.2f%%", winnerScore*100))

	signals := domain.Signal{}
	for _, held := range view.HeldTickers() {
		if held != winner {
			signals[held] = -view.Holding(held)
		}
	}

	// Size the winner from the pre-trade portfolio value: the liquidation
	// legs above have not executed yet, but their proceeds count.
	winnerPrice, ok := hist.Close(winner, on)
	if !ok || winnerPrice <= 0 {
		s.log.Warn("winner has no valid price, skipping buy leg", "date", day, "ticker", winner)
		return signals
	}
	total, _ := view.TotalValue(hist.Quote(on))
	target := int(total / winnerPrice)
	if delta := target - view.Holding(winner); delta != 0 {
		signals[winner] = delta
	}
	return signals
}

// isRebalanceDay applies the configured frequency: daily always qualifies,
// weekly and monthly qualify only on the history's first trading day of the
// current ISO week number or calendar month.
func (s *MomentumRotation) isRebalanceDay(on time.Time, hist *market.History) bool {
	switch s.frequency {
	case RebalanceDaily:
		return true
	case RebalanceWeekly:
		return hist.IsFirstTradingDayOfWeek(on)
	case RebalanceMonthly:
		return hist.IsFirstTradingDayOfMonth(on)
	}
	return false
}
