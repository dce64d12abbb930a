package engine

import (
	"math"
	"testing"
	"time"

	"equisim/internal/domain"
	"equisim/internal/market"
	"equisim/internal/portfolio"
)

func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func mustHistory(t *testing.T, days []time.Time, closes map[string][]float64) *market.History {
	t.Helper()
	h, err := market.NewHistory(days, closes)
	if err != nil {
		t.Fatalf("NewHistory returned error: %v", err)
	}
	return h
}

func mustLedger(t *testing.T, cash float64) *portfolio.Ledger {
	t.Helper()
	l, err := portfolio.NewLedger(cash)
	if err != nil {
		t.Fatalf("NewLedger returned error: %v", err)
	}
	return l
}

// scriptedStrategy emits a fixed signal per day.
type scriptedStrategy struct {
	name    string
	signals map[time.Time]domain.Signal
}

func (s *scriptedStrategy) Name() string { return s.name }

func (s *scriptedStrategy) GenerateSignals(on time.Time, _ *market.History, _ portfolio.View) domain.Signal {
	return s.signals[market.Day(on)]
}

func TestRunSamplesEveryDay(t *testing.T) {
	days := []time.Time{d(2020, 1, 2), d(2020, 1, 3), d(2020, 1, 6)}
	h := mustHistory(t, days, map[string][]float64{"X": {10, 12, 11}})
	strat := &scriptedStrategy{
		name:    "scripted",
		signals: map[time.Time]domain.Signal{d(2020, 1, 2): {"X": 5}},
	}

	res := New(mustLedger(t, 100), strat, h).Run()

	if res.Strategy != "scripted" {
		t.Errorf("Strategy = %q, want %q", res.Strategy, "scripted")
	}
	if len(res.Equity) != len(days) || len(res.Cash) != len(days) {
		t.Fatalf("curve lengths = %d equity, %d cash; want %d each",
			len(res.Equity), len(res.Cash), len(days))
	}

	// Day 1: buy 5 at 10, cash 50, equity 50 + 50. Later days mark to market.
	wantEquity := []float64{100, 110, 105}
	for i, want := range wantEquity {
		if got := res.Equity[i].Value; got != want {
			t.Errorf("equity[%d] = %v, want %v", i, got, want)
		}
		if !res.Equity[i].Date.Equal(days[i]) {
			t.Errorf("equity[%d] date = %s, want %s",
				i, res.Equity[i].Date.Format(time.DateOnly), days[i].Format(time.DateOnly))
		}
	}
	for i, want := range []float64{50, 50, 50} {
		if got := res.Cash[i].Value; got != want {
			t.Errorf("cash[%d] = %v, want %v", i, got, want)
		}
	}
	if len(res.Transactions) != 1 {
		t.Errorf("transaction log has %d entries, want 1", len(res.Transactions))
	}
}

func TestRunExecutesSellsBeforeBuys(t *testing.T) {
	// Rotation on a single day: the buy is affordable only if the sell's
	// proceeds land first.
	days := []time.Time{d(2020, 1, 2), d(2020, 1, 3)}
	h := mustHistory(t, days, map[string][]float64{
		"A": {100, 100},
		"B": {90, 90},
	})
	strat := &scriptedStrategy{
		name: "rotate",
		signals: map[time.Time]domain.Signal{
			d(2020, 1, 2): {"B": 10},
			d(2020, 1, 3): {"B": -10, "A": 9},
		},
	}

	res := New(mustLedger(t, 900), strat, h).Run()

	if len(res.Transactions) != 3 {
		t.Fatalf("transaction log has %d entries, want 3", len(res.Transactions))
	}
	second, third := res.Transactions[1], res.Transactions[2]
	if second.Ticker != "B" || second.Action != domain.ActionSell {
		t.Errorf("second transaction = %+v, want the B sell leg", second)
	}
	if third.Ticker != "A" || third.Action != domain.ActionBuy || third.Quantity != 9 {
		t.Errorf("third transaction = %+v, want the 9-share A buy leg", third)
	}
}

func TestRunDropsUnpricedOrdersAndContinues(t *testing.T) {
	days := []time.Time{d(2020, 1, 2), d(2020, 1, 3)}
	h := mustHistory(t, days, map[string][]float64{
		"X": {math.NaN(), 10},
	})
	strat := &scriptedStrategy{
		name: "scripted",
		signals: map[time.Time]domain.Signal{
			d(2020, 1, 2): {"X": 5}, // no price that day
			d(2020, 1, 3): {"X": 5},
		},
	}

	res := New(mustLedger(t, 100), strat, h).Run()

	if len(res.Transactions) != 1 {
		t.Fatalf("transaction log has %d entries, want 1", len(res.Transactions))
	}
	if got := res.Transactions[0].Date; !got.Equal(d(2020, 1, 3)) {
		t.Errorf("surviving transaction date = %s, want 2020-01-03", got.Format(time.DateOnly))
	}
}

func TestRunRejectedOrderLeavesRunIntact(t *testing.T) {
	days := []time.Time{d(2020, 1, 2)}
	h := mustHistory(t, days, map[string][]float64{"X": {10}})
	strat := &scriptedStrategy{
		name:    "overdraw",
		signals: map[time.Time]domain.Signal{d(2020, 1, 2): {"X": 100}},
	}

	res := New(mustLedger(t, 50), strat, h).Run()

	if len(res.Transactions) != 0 {
		t.Errorf("transaction log has %d entries, want 0", len(res.Transactions))
	}
	if got := res.Equity[0].Value; got != 50 {
		t.Errorf("equity after rejected buy = %v, want 50", got)
	}
}

func TestOrderedEntries(t *testing.T) {
	got := orderedEntries(domain.Signal{"C": 3, "A": -1, "D": -2, "B": 4, "E": 0})
	want := []entry{
		{ticker: "A", qty: -1},
		{ticker: "D", qty: -2},
		{ticker: "B", qty: 4},
		{ticker: "C", qty: 3},
	}
	if len(got) != len(want) {
		t.Fatalf("orderedEntries returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("orderedEntries[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRunValuesUnpricedHoldingAtZero(t *testing.T) {
	days := []time.Time{d(2020, 1, 2), d(2020, 1, 3)}
	h := mustHistory(t, days, map[string][]float64{
		"X": {10, math.NaN()},
	})
	strat := &scriptedStrategy{
		name:    "scripted",
		signals: map[time.Time]domain.Signal{d(2020, 1, 2): {"X": 10}},
	}

	res := New(mustLedger(t, 100), strat, h).Run()

	// Day 2 has no price for X: the position is excluded from valuation.
	if got := res.Equity[1].Value; got != 0 {
		t.Errorf("equity on unpriced day = %v, want 0", got)
	}
}
