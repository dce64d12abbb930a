// Package engine drives a backtest: one pass over the price history in date
// order, asking the strategy for signals, executing the accepted orders
// against the ledger, and recording end-of-day valuation and cash.
package engine

import (
	"log/slog"
	"sort"
	"time"

	"equisim/internal/domain"
	"equisim/internal/market"
	"equisim/internal/portfolio"
	"equisim/internal/strategy"
)

// Result is the in-memory hand-off to reporting: one equity and one cash
// sample per simulated trading day, plus the full transaction log.
type Result struct {
	Strategy     string
	Equity       []domain.CurvePoint
	Cash         []domain.CurvePoint
	Transactions []domain.Transaction
}

// Backtester owns a ledger and a strategy instance for the duration of one
// run over a shared read-only history. Runs are strictly sequential; there
// is no cancellation and no early exit.
type Backtester struct {
	ledger *portfolio.Ledger
	strat  strategy.Strategy
	hist   *market.History
	log    *slog.Logger
}

// New creates a Backtester. The ledger and strategy must be fresh instances
// dedicated to this run; the history may be shared across runs.
func New(ledger *portfolio.Ledger, strat strategy.Strategy, hist *market.History) *Backtester {
	return &Backtester{
		ledger: ledger,
		strat:  strat,
		hist:   hist,
		log:    slog.Default().With("strategy", strat.Name()),
	}
}

// Run simulates every trading day in the history exactly once. Per-order
// failures (missing prices, rejected trades) are logged and skipped; the run
// always proceeds to the end of the history.
func (bt *Backtester) Run() *Result {
	res := &Result{
		Strategy: bt.strat.Name(),
		Equity:   make([]domain.CurvePoint, 0, bt.hist.Len()),
		Cash:     make([]domain.CurvePoint, 0, bt.hist.Len()),
	}

	for i := 0; i < bt.hist.Len(); i++ {
		day := bt.hist.Day(i)

		signals := bt.strat.GenerateSignals(day, bt.hist, bt.ledger)
		for _, ord := range orderedEntries(signals) {
			bt.execute(ord, day)
		}

		quote := bt.hist.Quote(day)
		total, unpriced := bt.ledger.TotalValue(quote)
		for _, ticker := range unpriced {
			bt.log.Warn("holding has no valid price, excluded from valuation",
				"ticker", ticker, "date", day.Format(time.DateOnly))
		}
		res.Equity = append(res.Equity, domain.CurvePoint{Date: day, Value: total})
		res.Cash = append(res.Cash, domain.CurvePoint{Date: day, Value: bt.ledger.Cash()})
	}

	res.Transactions = bt.ledger.Transactions()
	return res
}

func (bt *Backtester) execute(ord entry, day time.Time) {
	price, ok := bt.hist.Close(ord.ticker, day)
	if !ok {
		bt.log.Warn("no valid price, order dropped",
			"ticker", ord.ticker, "qty", ord.qty, "date", day.Format(time.DateOnly))
		return
	}
	if err := bt.ledger.ExecuteTransaction(ord.ticker, ord.qty, price, day); err != nil {
		bt.log.Warn("order rejected", "ticker", ord.ticker, "qty", ord.qty,
			"date", day.Format(time.DateOnly), "err", err)
	}
}

type entry struct {
	ticker string
	qty    int
}

// orderedEntries fixes the execution order of a signal batch: sell legs
// first, then buy legs, each sorted by ticker. Sells must run first so that
// same-day rotation trades are funded by their own liquidation proceeds.
func orderedEntries(signals domain.Signal) []entry {
	entries := make([]entry, 0, len(signals))
	for ticker, qty := range signals {
		if qty != 0 {
			entries = append(entries, entry{ticker: ticker, qty: qty})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		si, sj := entries[i].qty < 0, entries[j].qty < 0
		if si != sj {
			return si
		}
		return entries[i].ticker < entries[j].ticker
	})
	return entries
}
