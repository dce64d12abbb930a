// Package market holds the read-only price data the simulator consumes: a
// date-ordered table of per-ticker daily close prices, the trading-calendar
// tests periodic strategies rely on, and currency conversion of price series.
package market

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"equisim/internal/domain"
)

// History is an immutable table of daily close prices keyed by strictly
// increasing, unique trading days. A missing price is stored as NaN. A
// History may be shared read-only across concurrent runs.
type History struct {
	days   []time.Time
	closes map[string][]float64 // aligned to days; NaN marks a missing price
	index  map[time.Time]int

	firstOfMonth map[time.Month]time.Time
	firstOfWeek  map[int]time.Time
}

// Day normalizes a timestamp to its trading day: midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewHistory builds a History from trading days and per-ticker close series.
// Days must be strictly increasing and every series must have one entry per
// day (NaN for days the ticker has no valid price).
func NewHistory(days []time.Time, closes map[string][]float64) (*History, error) {
	norm := make([]time.Time, len(days))
	for i, d := range days {
		norm[i] = Day(d)
		if i > 0 && !norm[i].After(norm[i-1]) {
			return nil, fmt.Errorf("trading days must be strictly increasing: %s after %s",
				norm[i].Format(time.DateOnly), norm[i-1].Format(time.DateOnly))
		}
	}
	for ticker, series := range closes {
		if len(series) != len(norm) {
			return nil, fmt.Errorf("close series for %s has %d entries, want %d", ticker, len(series), len(norm))
		}
	}

	h := &History{
		days:         norm,
		closes:       make(map[string][]float64, len(closes)),
		index:        make(map[time.Time]int, len(norm)),
		firstOfMonth: make(map[time.Month]time.Time),
		firstOfWeek:  make(map[int]time.Time),
	}
	for ticker, series := range closes {
		h.closes[ticker] = slices.Clone(series)
	}
	for i, d := range norm {
		h.index[d] = i
		if _, ok := h.firstOfMonth[d.Month()]; !ok {
			h.firstOfMonth[d.Month()] = d
		}
		_, week := d.ISOWeek()
		if _, ok := h.firstOfWeek[week]; !ok {
			h.firstOfWeek[week] = d
		}
	}
	return h, nil
}

// HistoryFromBars pivots daily bars into a History. Bars for the same symbol
// and day overwrite earlier ones; days present for any symbol become trading
// days, and symbols without a bar on a given day get NaN.
func HistoryFromBars(bars []domain.Bar) (*History, error) {
	bySymbol := make(map[string]map[time.Time]float64)
	daySet := make(map[time.Time]struct{})
	for _, b := range bars {
		d := Day(b.Timestamp)
		daySet[d] = struct{}{}
		m := bySymbol[b.Symbol]
		if m == nil {
			m = make(map[time.Time]float64)
			bySymbol[b.Symbol] = m
		}
		m[d] = b.Close
	}

	days := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	closes := make(map[string][]float64, len(bySymbol))
	for symbol, m := range bySymbol {
		series := make([]float64, len(days))
		for i, d := range days {
			if c, ok := m[d]; ok {
				series[i] = c
			} else {
				series[i] = math.NaN()
			}
		}
		closes[symbol] = series
	}
	return NewHistory(days, closes)
}

// Len returns the number of trading days.
func (h *History) Len() int { return len(h.days) }

// Day returns the i-th trading day.
func (h *History) Day(i int) time.Time { return h.days[i] }

// Days returns a copy of all trading days in order.
func (h *History) Days() []time.Time { return slices.Clone(h.days) }

// Tickers returns the sorted set of tickers with a close series.
func (h *History) Tickers() []string {
	names := make([]string, 0, len(h.closes))
	for t := range h.closes {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// HasTicker reports whether the history carries a close series for ticker.
func (h *History) HasTicker(ticker string) bool {
	_, ok := h.closes[ticker]
	return ok
}

// Close returns the close price for ticker on the given day. The second
// return value is false when the ticker has no series, the day is not a
// trading day, or the stored price is NaN.
func (h *History) Close(ticker string, on time.Time) (float64, bool) {
	series, ok := h.closes[ticker]
	if !ok {
		return 0, false
	}
	i, ok := h.index[Day(on)]
	if !ok {
		return 0, false
	}
	c := series[i]
	if math.IsNaN(c) {
		return 0, false
	}
	return c, true
}

// Quote returns a price lookup bound to a single day, for valuation.
func (h *History) Quote(on time.Time) func(ticker string) (float64, bool) {
	return func(ticker string) (float64, bool) {
		return h.Close(ticker, on)
	}
}

// HasDataBetween reports whether any trading day falls in [start, end).
func (h *History) HasDataBetween(start, end time.Time) bool {
	for _, d := range h.days {
		if !d.Before(start) && d.Before(end) {
			return true
		}
	}
	return false
}

// ValidPrices returns the ticker's non-NaN close prices on trading days in
// [start, end), in date order.
func (h *History) ValidPrices(ticker string, start, end time.Time) []float64 {
	series, ok := h.closes[ticker]
	if !ok {
		return nil
	}
	var prices []float64
	for i, d := range h.days {
		if d.Before(start) || !d.Before(end) {
			continue
		}
		if !math.IsNaN(series[i]) {
			prices = append(prices, series[i])
		}
	}
	return prices
}

// IsFirstTradingDayOfMonth reports whether the given day is the earliest
// trading day in the history sharing its calendar month number. Later years
// never qualify again for the same month.
func (h *History) IsFirstTradingDayOfMonth(on time.Time) bool {
	d := Day(on)
	first, ok := h.firstOfMonth[d.Month()]
	return ok && first.Equal(d)
}

// IsFirstTradingDayOfWeek reports whether the given day is the earliest
// trading day in the history sharing its ISO week number.
func (h *History) IsFirstTradingDayOfWeek(on time.Time) bool {
	d := Day(on)
	_, week := d.ISOWeek()
	first, ok := h.firstOfWeek[week]
	return ok && first.Equal(d)
}

// AddMonths shifts a day by the given number of calendar months, clamping
// the day-of-month to the length of the target month (Mar 31 minus one month
// is Feb 28, not Mar 3).
func AddMonths(t time.Time, months int) time.Time {
	d := Day(t)
	y, m, day := d.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
