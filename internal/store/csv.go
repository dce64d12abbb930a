package store

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"equisim/internal/domain"
)

// Compile-time interface check.
var _ BarStore = (*CSVStore)(nil)

// CSVStore implements BarStore with one CSV file per symbol:
//
//	<DataDir>/<SYMBOL>.csv with rows date,open,high,low,close,volume
//
// Files are read tolerantly: a UTF-16 byte-order mark is detected and
// decoded, and rows that fail to parse are skipped. This accepts the CSV
// exports various data tools produce.
type CSVStore struct {
	DataDir string
}

// NewCSVStore creates a CSVStore rooted at the given directory.
func NewCSVStore(dataDir string) *CSVStore {
	return &CSVStore{DataDir: dataDir}
}

var csvHeader = []string{"date", "open", "high", "low", "close", "volume"}

// WriteBars rewrites each touched symbol file with the merged, date-sorted
// bar set.
func (s *CSVStore) WriteBars(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	bySymbol := make(map[string][]domain.Bar)
	for _, b := range bars {
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}

	for symbol, incoming := range bySymbol {
		existing, err := s.ReadBars(ctx, symbol, time.Time{}, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC))
		if err != nil {
			return err
		}
		merged := mergeBars(existing, incoming)
		if err := s.writeSymbolFile(symbol, merged); err != nil {
			return err
		}
	}
	return nil
}

// ReadBars parses the symbol's file and returns bars in [start, end].
func (s *CSVStore) ReadBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	f, err := os.Open(s.symbolPath(symbol))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	// Detect a UTF-16 BOM; if present, decode to UTF-8.
	if b, _ := br.Peek(2); len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
		tr := transform.NewReader(f, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
		br = bufio.NewReader(tr)
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.symbolPath(symbol), err)
	}

	var bars []domain.Bar
	for i, rec := range records {
		if i == 0 && isHeaderRow(rec) {
			continue
		}
		b, ok := parseBarRow(symbol, rec)
		if !ok {
			continue
		}
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

// ListSymbols lists the symbols with a CSV file, sorted.
func (s *CSVStore) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasSuffix(name, ".csv") {
			symbols = append(symbols, strings.TrimSuffix(name, ".csv"))
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *CSVStore) symbolPath(symbol string) string {
	return filepath.Join(s.DataDir, strings.ToUpper(symbol)+".csv")
}

func (s *CSVStore) writeSymbolFile(symbol string, bars []domain.Bar) error {
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(s.symbolPath(symbol))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			b.Timestamp.UTC().Format(time.DateOnly),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatInt(b.Volume, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func isHeaderRow(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "date")
}

func parseBarRow(symbol string, rec []string) (domain.Bar, bool) {
	if len(rec) < 5 {
		return domain.Bar{}, false
	}
	ts, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(rec[0]), time.UTC)
	if err != nil {
		return domain.Bar{}, false
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
		if err != nil {
			return domain.Bar{}, false
		}
		vals[i] = v
	}
	var volume int64
	if len(rec) > 5 {
		// Volume may be fractional in some exports; truncate.
		if v, err := strconv.ParseFloat(strings.TrimSpace(rec[5]), 64); err == nil {
			volume = int64(v)
		}
	}
	return domain.Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    volume,
	}, true
}

// mergeBars deduplicates bars by day, preferring incoming over existing.
// Results are sorted by timestamp.
func mergeBars(existing, incoming []domain.Bar) []domain.Bar {
	seen := make(map[time.Time]domain.Bar, len(existing)+len(incoming))
	for _, b := range existing {
		seen[b.Timestamp.UTC().Truncate(24*time.Hour)] = b
	}
	for _, b := range incoming {
		seen[b.Timestamp.UTC().Truncate(24*time.Hour)] = b
	}

	merged := make([]domain.Bar, 0, len(seen))
	for _, b := range seen {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })
	return merged
}
