package builtins

import (
	"math"
	"testing"
	"time"

	"equisim/internal/market"
)

func TestNewMomentumRotationValidation(t *testing.T) {
	if _, err := NewMomentumRotation(nil, 1, RebalanceMonthly); err == nil {
		t.Error("NewMomentumRotation accepted an empty ticker list")
	}
	if _, err := NewMomentumRotation([]string{"A"}, 0, RebalanceMonthly); err == nil {
		t.Error("NewMomentumRotation accepted a zero lookback")
	}
	if _, err := NewMomentumRotation([]string{"A"}, 1, "hourly"); err == nil {
		t.Error("NewMomentumRotation accepted an unknown frequency")
	}
}

// rotationHistory covers January and the first trading day of February 2020.
// Over January A gains 20% and B loses 10%, so a one-month lookback evaluated
// on Feb 3 picks A.
func rotationHistory(t *testing.T) *market.History {
	t.Helper()
	days := []time.Time{
		d(2020, 1, 2), d(2020, 1, 3), d(2020, 1, 15), d(2020, 1, 31),
		d(2020, 2, 3),
	}
	return mustHistory(t, days, map[string][]float64{
		"A": {100, 100, 110, 120, 120},
		"B": {100, 100, 100, 90, 90},
	})
}

func TestMomentumRotatesIntoWinner(t *testing.T) {
	h := rotationHistory(t)
	s, err := NewMomentumRotation([]string{"A", "B"}, 1, RebalanceMonthly)
	if err != nil {
		t.Fatalf("NewMomentumRotation returned error: %v", err)
	}

	// The portfolio holds 10 B and no cash going into the rebalance.
	view := mustLedger(t, 1000)
	if err := view.ExecuteTransaction("B", 10, 100, d(2020, 1, 3)); err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}

	got := s.GenerateSignals(d(2020, 2, 3), h, view)

	// Pre-trade value on Feb 3 is 10 * 90 = 900; at A's price of 120 that
	// buys 7 shares alongside the full liquidation of B.
	if len(got) != 2 || got["B"] != -10 || got["A"] != 7 {
		t.Errorf("rebalance signal = %v, want map[A:7 B:-10]", got)
	}
}

func TestMomentumSkipsNonRebalanceDays(t *testing.T) {
	h := rotationHistory(t)
	s, err := NewMomentumRotation([]string{"A", "B"}, 1, RebalanceMonthly)
	if err != nil {
		t.Fatalf("NewMomentumRotation returned error: %v", err)
	}

	if got := s.GenerateSignals(d(2020, 1, 15), h, mustLedger(t, 1000)); len(got) != 0 {
		t.Errorf("mid-month signal = %v, want empty", got)
	}
}

func TestMomentumTieGoesToFirstListed(t *testing.T) {
	days := []time.Time{d(2020, 1, 3), d(2020, 1, 31), d(2020, 2, 3)}
	h := mustHistory(t, days, map[string][]float64{
		"A": {100, 110, 110},
		"B": {200, 220, 220},
	})
	s, err := NewMomentumRotation([]string{"B", "A"}, 1, RebalanceMonthly)
	if err != nil {
		t.Fatalf("NewMomentumRotation returned error: %v", err)
	}

	got := s.GenerateSignals(d(2020, 2, 3), h, mustLedger(t, 1100))
	// Both returned 10%; B is listed first and wins: 1100 / 220 = 5 shares.
	if len(got) != 1 || got["B"] != 5 {
		t.Errorf("tie signal = %v, want map[B:5]", got)
	}
}

func TestMomentumEmptyLookbackWindow(t *testing.T) {
	// A single-day history: the trailing window ends before any data.
	h := mustHistory(t,
		[]time.Time{d(2020, 2, 3)},
		map[string][]float64{"A": {100}},
	)
	s, err := NewMomentumRotation([]string{"A"}, 1, RebalanceMonthly)
	if err != nil {
		t.Fatalf("NewMomentumRotation returned error: %v", err)
	}

	if got := s.GenerateSignals(d(2020, 2, 3), h, mustLedger(t, 1000)); len(got) != 0 {
		t.Errorf("signal with empty lookback window = %v, want empty", got)
	}
}

func TestMomentumUnpricedWinnerStillLiquidates(t *testing.T) {
	days := []time.Time{d(2020, 1, 3), d(2020, 1, 31), d(2020, 2, 3)}
	h := mustHistory(t, days, map[string][]float64{
		"A": {100, 120, math.NaN()}, // winner, but no price on the rebalance day
		"B": {100, 90, 90},
	})
	s, err := NewMomentumRotation([]string{"A", "B"}, 1, RebalanceMonthly)
	if err != nil {
		t.Fatalf("NewMomentumRotation returned error: %v", err)
	}

	view := mustLedger(t, 1000)
	if err := view.ExecuteTransaction("B", 10, 100, d(2020, 1, 3)); err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}

	got := s.GenerateSignals(d(2020, 2, 3), h, view)
	if len(got) != 1 || got["B"] != -10 {
		t.Errorf("signal = %v, want the liquidation leg map[B:-10] only", got)
	}
}

func TestMomentumIgnoresUnscorableTickers(t *testing.T) {
	days := []time.Time{d(2020, 1, 3), d(2020, 1, 31), d(2020, 2, 3)}
	h := mustHistory(t, days, map[string][]float64{
		"A": {math.NaN(), 120, 120}, // one valid price in the window
		"B": {100, 105, 105},
	})
	s, err := NewMomentumRotation([]string{"A", "B"}, 1, RebalanceMonthly)
	if err != nil {
		t.Fatalf("NewMomentumRotation returned error: %v", err)
	}

	got := s.GenerateSignals(d(2020, 2, 3), h, mustLedger(t, 1050))
	if len(got) != 1 || got["B"] != 10 {
		t.Errorf("signal = %v, want map[B:10]", got)
	}
}

func TestMomentumHoldsExistingWinner(t *testing.T) {
	h := rotationHistory(t)
	s, err := NewMomentumRotation([]string{"A", "B"}, 1, RebalanceMonthly)
	if err != nil {
		t.Fatalf("NewMomentumRotation returned error: %v", err)
	}

	// Already fully invested in A: 10 shares at 120 = 1200, no cash.
	view := mustLedger(t, 1200)
	if err := view.ExecuteTransaction("A", 10, 120, d(2020, 1, 31)); err != nil {
		t.Fatalf("setup buy failed: %v", err)
	}

	if got := s.GenerateSignals(d(2020, 2, 3), h, view); len(got) != 0 {
		t.Errorf("signal while already holding the winner = %v, want empty", got)
	}
}
