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
var _ strategy.Strategy = (*MonthlyDCA)(nil)

// MonthlyDCA invests a fixed dollar amount in one ticker on the first
// trading day of each month.
type MonthlyDCA struct {
	ticker        string
	amount        float64
	investedMonth time.Month // zero until the first buy
	log           *slog.Logger
}

// NewMonthlyDCA creates a dollar-cost-averaging strategy that buys amount
// dollars of ticker once per month.
func NewMonthlyDCA(ticker string, amount float64) (*MonthlyDCA, error) {
	if ticker == "" {
		return nil, fmt.Errorf("monthly-dca: ticker must not be empty")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("monthly-dca: monthly amount must be positive, got %.2f", amount)
	}
	return &MonthlyDCA{
		ticker: ticker,
		amount: amount,
		log:    slog.Default().With("strategy", "monthly-dca"),
	}, nil
}

// Name returns "monthly-dca".
func (s *MonthlyDCA) Name() string { return "monthly-dca" }

// GenerateSignals emits a whole-share buy on the first trading day of a
// month not yet invested in. When the ticker has no valid positive price on
// that day no signal is produced and the month is not consumed.
func (s *MonthlyDCA) GenerateSignals(on time.Time, hist *market.History, _ portfolio.View) domain.Signal {
	month := on.Month()
	if month == s.investedMonth {
		return nil
	}
	if !hist.IsFirstTradingDayOfMonth(on) {
		return nil
	}

	price, ok := hist.Close(s.ticker, on)
	if !ok || price <= 0 {
		s.log.Warn("no valid price on first trading day, month not consumed",
			"ticker", s.ticker, "date", on.Format(time.DateOnly))
		return nil
	}

	qty := int(s.amount / price)
	if qty == 0 {
		return nil
	}
	s.investedMonth = month
	return domain.Signal{s.ticker: qty}
}
