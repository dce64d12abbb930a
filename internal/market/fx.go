package market

import (
	"fmt"
	"math"
	"slices"
	"time"

	"equisim/internal/domain"
)

// ConvertCurrency returns a copy of the history with the close series of the
// given tickers multiplied by an exchange-rate series. Rates are aligned to
// the history's trading days, forward-filled across gaps and back-filled at
// the start. It fails if no usable rate exists at all.
func (h *History) ConvertCurrency(tickers []string, rates []domain.CurvePoint) (*History, error) {
	aligned, err := alignRates(h.days, rates)
	if err != nil {
		return nil, err
	}

	closes := make(map[string][]float64, len(h.closes))
	for ticker, series := range h.closes {
		closes[ticker] = slices.Clone(series)
	}
	for _, ticker := range tickers {
		series, ok := closes[ticker]
		if !ok {
			return nil, fmt.Errorf("cannot convert %s: no close series", ticker)
		}
		for i := range series {
			series[i] *= aligned[i]
		}
	}
	return NewHistory(h.days, closes)
}

// alignRates resamples an exchange-rate series onto the given trading days:
// the latest rate at or before each day, back-filled with the earliest rate
// for days preceding all samples.
func alignRates(days []time.Time, rates []domain.CurvePoint) ([]float64, error) {
	valid := make([]domain.CurvePoint, 0, len(rates))
	for _, r := range rates {
		if !math.IsNaN(r.Value) {
			valid = append(valid, domain.CurvePoint{Date: Day(r.Date), Value: r.Value})
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("exchange-rate series has no valid samples")
	}
	slices.SortStableFunc(valid, func(a, b domain.CurvePoint) int {
		return a.Date.Compare(b.Date)
	})

	aligned := make([]float64, len(days))
	for i, d := range days {
		// Latest rate at or before d; the earliest rate back-fills days that
		// precede all samples.
		j, _ := slices.BinarySearchFunc(valid, d, func(r domain.CurvePoint, day time.Time) int {
			return r.Date.Compare(day)
		})
		switch {
		case j < len(valid) && valid[j].Date.Equal(d):
			aligned[i] = valid[j].Value
		case j == 0:
			aligned[i] = valid[0].Value
		default:
			aligned[i] = valid[j-1].Value
		}
	}
	return aligned, nil
}
