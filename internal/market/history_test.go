package market

import (
	"math"
	"testing"
	"time"

	"equisim/internal/domain"
)

func d(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func mustHistory(t *testing.T, days []time.Time, closes map[string][]float64) *History {
	t.Helper()
	h, err := NewHistory(days, closes)
	if err != nil {
		t.Fatalf("NewHistory returned error: %v", err)
	}
	return h
}

func TestNewHistoryRejectsUnorderedDays(t *testing.T) {
	days := []time.Time{d(2020, 1, 3), d(2020, 1, 2)}
	if _, err := NewHistory(days, nil); err == nil {
		t.Fatal("NewHistory accepted out-of-order days")
	}

	dup := []time.Time{d(2020, 1, 2), d(2020, 1, 2)}
	if _, err := NewHistory(dup, nil); err == nil {
		t.Fatal("NewHistory accepted duplicate days")
	}
}

func TestNewHistoryRejectsMisalignedSeries(t *testing.T) {
	days := []time.Time{d(2020, 1, 2), d(2020, 1, 3)}
	closes := map[string][]float64{"X": {100}}
	if _, err := NewHistory(days, closes); err == nil {
		t.Fatal("NewHistory accepted a series shorter than the day index")
	}
}

func TestClose(t *testing.T) {
	h := mustHistory(t,
		[]time.Time{d(2020, 1, 2), d(2020, 1, 3)},
		map[string][]float64{"X": {100, math.NaN()}},
	)

	if got, ok := h.Close("X", d(2020, 1, 2)); !ok || got != 100 {
		t.Errorf("Close(X, 2020-01-02) = %v, %v; want 100, true", got, ok)
	}
	if _, ok := h.Close("X", d(2020, 1, 3)); ok {
		t.Error("Close returned ok for a NaN price")
	}
	if _, ok := h.Close("X", d(2020, 1, 4)); ok {
		t.Error("Close returned ok for a non-trading day")
	}
	if _, ok := h.Close("Y", d(2020, 1, 2)); ok {
		t.Error("Close returned ok for an unknown ticker")
	}
}

func TestFirstTradingDayOfMonth(t *testing.T) {
	// Two Januaries: only the first one in the history qualifies.
	h := mustHistory(t, []time.Time{
		d(2020, 1, 2), d(2020, 1, 3),
		d(2020, 2, 3),
		d(2021, 1, 4),
	}, nil)

	if !h.IsFirstTradingDayOfMonth(d(2020, 1, 2)) {
		t.Error("2020-01-02 should be the first trading day of January")
	}
	if h.IsFirstTradingDayOfMonth(d(2020, 1, 3)) {
		t.Error("2020-01-03 is not the first trading day of January")
	}
	if !h.IsFirstTradingDayOfMonth(d(2020, 2, 3)) {
		t.Error("2020-02-03 should be the first trading day of February")
	}
	if h.IsFirstTradingDayOfMonth(d(2021, 1, 4)) {
		t.Error("2021-01-04 shares January with 2020 and must not qualify")
	}
}

func TestFirstTradingDayOfWeek(t *testing.T) {
	// 2020-01-06 is a Monday (ISO week 2); 2020-01-07 the Tuesday after.
	h := mustHistory(t, []time.Time{
		d(2020, 1, 6), d(2020, 1, 7), d(2020, 1, 13),
	}, nil)

	if !h.IsFirstTradingDayOfWeek(d(2020, 1, 6)) {
		t.Error("2020-01-06 should be the first trading day of its ISO week")
	}
	if h.IsFirstTradingDayOfWeek(d(2020, 1, 7)) {
		t.Error("2020-01-07 is not the first trading day of its ISO week")
	}
	if !h.IsFirstTradingDayOfWeek(d(2020, 1, 13)) {
		t.Error("2020-01-13 starts ISO week 3 and should qualify")
	}
}

func TestValidPricesWindow(t *testing.T) {
	h := mustHistory(t,
		[]time.Time{d(2020, 1, 2), d(2020, 1, 3), d(2020, 1, 6), d(2020, 1, 7)},
		map[string][]float64{"X": {100, math.NaN(), 110, 120}},
	)

	// Window [Jan 2, Jan 7): the NaN on Jan 3 is dropped, Jan 7 excluded.
	got := h.ValidPrices("X", d(2020, 1, 2), d(2020, 1, 7))
	want := []float64{100, 110}
	if len(got) != len(want) {
		t.Fatalf("ValidPrices returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ValidPrices[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if got := h.ValidPrices("X", d(2019, 1, 1), d(2019, 12, 31)); got != nil {
		t.Errorf("ValidPrices outside the history = %v, want nil", got)
	}
}

func TestHasDataBetween(t *testing.T) {
	h := mustHistory(t, []time.Time{d(2020, 1, 2)}, nil)

	if !h.HasDataBetween(d(2020, 1, 1), d(2020, 1, 3)) {
		t.Error("HasDataBetween missed a covered day")
	}
	if h.HasDataBetween(d(2020, 1, 3), d(2020, 2, 1)) {
		t.Error("HasDataBetween reported data in an empty window")
	}
	// End bound is exclusive.
	if h.HasDataBetween(d(2019, 12, 1), d(2020, 1, 2)) {
		t.Error("HasDataBetween treated the exclusive end as covered")
	}
}

func TestAddMonthsClamps(t *testing.T) {
	cases := []struct {
		in     time.Time
		months int
		want   time.Time
	}{
		{d(2020, 3, 31), -1, d(2020, 2, 29)}, // leap February
		{d(2021, 3, 31), -1, d(2021, 2, 28)},
		{d(2020, 7, 15), -3, d(2020, 4, 15)},
		{d(2020, 1, 31), 1, d(2020, 2, 29)},
		{d(2020, 1, 15), -13, d(2018, 12, 15)},
	}
	for _, tc := range cases {
		if got := AddMonths(tc.in, tc.months); !got.Equal(tc.want) {
			t.Errorf("AddMonths(%s, %d) = %s, want %s",
				tc.in.Format(time.DateOnly), tc.months,
				got.Format(time.DateOnly), tc.want.Format(time.DateOnly))
		}
	}
}

func TestHistoryFromBars(t *testing.T) {
	bars := []domain.Bar{
		{Symbol: "X", Timestamp: d(2020, 1, 3), Close: 101},
		{Symbol: "X", Timestamp: d(2020, 1, 2), Close: 100},
		{Symbol: "Y", Timestamp: d(2020, 1, 3), Close: 50},
	}
	h, err := HistoryFromBars(bars)
	if err != nil {
		t.Fatalf("HistoryFromBars returned error: %v", err)
	}

	if h.Len() != 2 {
		t.Fatalf("history has %d days, want 2", h.Len())
	}
	if !h.Day(0).Equal(d(2020, 1, 2)) {
		t.Errorf("first day = %s, want 2020-01-02", h.Day(0).Format(time.DateOnly))
	}
	if got, ok := h.Close("X", d(2020, 1, 2)); !ok || got != 100 {
		t.Errorf("Close(X, 2020-01-02) = %v, %v; want 100, true", got, ok)
	}
	// Y has no bar on Jan 2: that day must read as missing, not zero.
	if _, ok := h.Close("Y", d(2020, 1, 2)); ok {
		t.Error("Close(Y, 2020-01-02) should be missing")
	}
	if got, ok := h.Close("Y", d(2020, 1, 3)); !ok || got != 50 {
		t.Errorf("Close(Y, 2020-01-03) = %v, %v; want 50, true", got, ok)
	}
}

func TestHistoryFromBarsLastWins(t *testing.T) {
	bars := []domain.Bar{
		{Symbol: "X", Timestamp: d(2020, 1, 2), Close: 100},
		{Symbol: "X", Timestamp: d(2020, 1, 2), Close: 105},
	}
	h, err := HistoryFromBars(bars)
	if err != nil {
		t.Fatalf("HistoryFromBars returned error: %v", err)
	}
	if got, _ := h.Close("X", d(2020, 1, 2)); got != 105 {
		t.Errorf("duplicate bar: Close = %v, want the later value 105", got)
	}
}
