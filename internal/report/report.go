// Package report turns backtest results into the downstream artifacts: a
// performance summary per strategy, a benchmark comparison curve, and CSV
// exports of the equity/cash curves and the transaction ledger.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"equisim/internal/domain"
	"equisim/internal/engine"
	"equisim/internal/market"
)

// Summary condenses one run into headline figures.
type Summary struct {
	Strategy    string
	Days        int
	FinalValue  float64
	TotalReturn float64 // ratio over initial cash
	CAGR        float64 // annualized return ratio
	MaxDrawdown float64 // worst peak-to-trough loss as a positive ratio
	Trades      int
}

// Summarize computes the summary figures for a finished run.
func Summarize(res *engine.Result, initialCash float64) Summary {
	s := SummarizeCurve(res.Strategy, res.Equity, initialCash)
	s.Trades = len(res.Transactions)
	return s
}

// SummarizeCurve computes summary figures for any equity-like curve, such
// as the scaled benchmark.
func SummarizeCurve(name string, curve []domain.CurvePoint, initialCash float64) Summary {
	s := Summary{
		Strategy: name,
		Days:     len(curve),
	}
	if len(curve) == 0 {
		return s
	}

	final := curve[len(curve)-1].Value
	s.FinalValue = final
	s.TotalReturn = final/initialCash - 1
	s.MaxDrawdown = maxDrawdown(curve)

	span := curve[len(curve)-1].Date.Sub(curve[0].Date)
	if years := span.Hours() / 24 / 365.25; years > 0 && initialCash > 0 && final > 0 {
		s.CAGR = math.Pow(final/initialCash, 1/years) - 1
	}
	return s
}

func maxDrawdown(curve []domain.CurvePoint) float64 {
	var worst float64
	peak := math.Inf(-1)
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (peak - p.Value) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// BenchmarkCurve scales the benchmark ticker's close series so it starts at
// initialCash, mirroring a lump-sum investment on the first day the ticker
// has a valid price. Days without a valid price are dropped.
func BenchmarkCurve(hist *market.History, ticker string, initialCash float64) ([]domain.CurvePoint, error) {
	var curve []domain.CurvePoint
	scale := math.NaN()
	for _, day := range hist.Days() {
		price, ok := hist.Close(ticker, day)
		if !ok {
			continue
		}
		if math.IsNaN(scale) {
			if price <= 0 {
				continue
			}
			scale = initialCash / price
		}
		curve = append(curve, domain.CurvePoint{Date: day, Value: price * scale})
	}
	if len(curve) == 0 {
		return nil, fmt.Errorf("benchmark %s has no valid prices", ticker)
	}
	return curve, nil
}

// Normalize rescales a curve so it starts at 1, for cumulative-return
// comparison. An empty or zero-starting curve is returned unchanged.
func Normalize(curve []domain.CurvePoint) []domain.CurvePoint {
	if len(curve) == 0 || curve[0].Value == 0 {
		return curve
	}
	first := curve[0].Value
	out := make([]domain.CurvePoint, len(curve))
	for i, p := range curve {
		out[i] = domain.CurvePoint{Date: p.Date, Value: p.Value / first}
	}
	return out
}

// RenderSummaries writes a comparison table of run summaries, one row per
// strategy, plus an optional benchmark row.
func RenderSummaries(w io.Writer, summaries []Summary, benchmark *Summary) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tDAYS\tFINAL VALUE\tRETURN\tCAGR\tMAX DD\tTRADES")
	rows := summaries
	if benchmark != nil {
		rows = append(append([]Summary{}, summaries...), *benchmark)
	}
	for _, s := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%d\n",
			s.Strategy, s.Days,
			FormatMoney(s.FinalValue),
			FormatPct(s.TotalReturn),
			FormatPct(s.CAGR),
			FormatPct(-s.MaxDrawdown),
			s.Trades)
	}
	return tw.Flush()
}

// WriteCurveCSV writes a (date, value) curve as CSV.
func WriteCurveCSV(path string, curve []domain.CurvePoint) error {
	return writeCSV(path, [][]string{{"date", "value"}}, func(w *csv.Writer) error {
		for _, p := range curve {
			row := []string{
				p.Date.Format(time.DateOnly),
				strconv.FormatFloat(p.Value, 'f', 2, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteTransactionsCSV writes the transaction ledger as CSV.
func WriteTransactionsCSV(path string, txs []domain.Transaction) error {
	header := [][]string{{"date", "ticker", "action", "quantity", "price", "notional"}}
	return writeCSV(path, header, func(w *csv.Writer) error {
		for _, tx := range txs {
			row := []string{
				tx.Date.Format(time.DateOnly),
				tx.Ticker,
				string(tx.Action),
				strconv.Itoa(tx.Quantity),
				strconv.FormatFloat(tx.Price, 'f', 2, 64),
				strconv.FormatFloat(tx.Notional, 'f', 2, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeCSV(path string, header [][]string, body func(*csv.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, row := range header {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	if err := body(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
