// Package portfolio implements the ledger that owns cash, share holdings,
// and the append-only transaction log of a simulation run. The ledger is the
// only component allowed to mutate portfolio state, and it enforces solvency:
// a transaction that would overdraw cash or shares is rejected without any
// state change.
package portfolio

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"time"

	"equisim/internal/domain"
)

// Rejection reasons. Both are non-fatal: the order is dropped and the run
// continues.
var (
	ErrInsufficientCash   = errors.New("insufficient cash")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// QuoteFunc resolves a ticker's price on some day. The second return value
// is false when no valid price exists.
type QuoteFunc func(ticker string) (float64, bool)

// View is the read-only ledger surface handed to strategies. Strategies can
// inspect cash, holdings, and valuations but can never trade through it.
type View interface {
	// Cash returns the current cash balance.
	Cash() float64

	// Holding returns the number of shares currently held for ticker, zero
	// if none.
	Holding(ticker string) int

	// HeldTickers returns the tickers with a non-zero position, sorted.
	HeldTickers() []string

	// HoldingsValue sums quantity times price over held tickers. Tickers
	// without a valid price are excluded from the sum and returned.
	HoldingsValue(quote QuoteFunc) (value float64, unpriced []string)

	// TotalValue is cash plus holdings value; unpriced holdings are excluded
	// and returned.
	TotalValue(quote QuoteFunc) (value float64, unpriced []string)
}

// Compile-time interface check.
var _ View = (*Ledger)(nil)

// Ledger tracks cash, integer share holdings, and every executed
// transaction. Entries leave the holdings map when their count reaches zero.
type Ledger struct {
	initialCash  float64
	cash         float64
	holdings     map[string]int
	transactions []domain.Transaction
}

// NewLedger creates a ledger with the given starting cash.
func NewLedger(initialCash float64) (*Ledger, error) {
	if initialCash < 0 {
		return nil, fmt.Errorf("initial cash must not be negative, got %.2f", initialCash)
	}
	return &Ledger{
		initialCash: initialCash,
		cash:        initialCash,
		holdings:    make(map[string]int),
	}, nil
}

// InitialCash returns the cash the ledger started with.
func (l *Ledger) InitialCash() float64 { return l.initialCash }

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// Holding returns the current share count for ticker, zero if not held.
func (l *Ledger) Holding(ticker string) int { return l.holdings[ticker] }

// HeldTickers returns the tickers with a non-zero position, sorted.
func (l *Ledger) HeldTickers() []string {
	tickers := make([]string, 0, len(l.holdings))
	for t := range l.holdings {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// Holdings returns a copy of the holdings map.
func (l *Ledger) Holdings() map[string]int {
	return maps.Clone(l.holdings)
}

// ExecuteTransaction applies a signed trade: positive quantity buys, negative
// quantity sells, zero is a no-op. A buy exceeding cash fails with
// ErrInsufficientCash; a sell exceeding the held count fails with
// ErrInsufficientShares. On failure nothing changes and nothing is recorded.
// On success cash and holdings update together with exactly one appended
// transaction record.
func (l *Ledger) ExecuteTransaction(ticker string, quantity int, price float64, on time.Time) error {
	if quantity == 0 {
		return nil
	}

	cost := float64(quantity) * price
	var action domain.Action

	if quantity > 0 {
		if l.cash < cost {
			return fmt.Errorf("%w: buying %d %s costs %.2f, have %.2f",
				ErrInsufficientCash, quantity, ticker, cost, l.cash)
		}
		l.holdings[ticker] += quantity
		action = domain.ActionBuy
	} else {
		if l.holdings[ticker] < -quantity {
			return fmt.Errorf("%w: selling %d %s, hold %d",
				ErrInsufficientShares, -quantity, ticker, l.holdings[ticker])
		}
		l.holdings[ticker] += quantity
		if l.holdings[ticker] == 0 {
			delete(l.holdings, ticker)
		}
		action = domain.ActionSell
	}

	// cost is negative for sells, so this credits the proceeds.
	l.cash -= cost
	l.transactions = append(l.transactions, domain.Transaction{
		Date:     on,
		Ticker:   ticker,
		Action:   action,
		Quantity: abs(quantity),
		Price:    price,
		Notional: float64(abs(quantity)) * price,
	})
	return nil
}

// HoldingsValue sums quantity times price over the held tickers using the
// given quote. A held ticker without a valid price contributes nothing and
// is reported in the second return value, sorted.
func (l *Ledger) HoldingsValue(quote QuoteFunc) (float64, []string) {
	var value float64
	var unpriced []string
	for ticker, qty := range l.holdings {
		price, ok := quote(ticker)
		if !ok {
			unpriced = append(unpriced, ticker)
			continue
		}
		value += float64(qty) * price
	}
	sort.Strings(unpriced)
	return value, unpriced
}

// TotalValue is cash plus holdings value at the given quote.
func (l *Ledger) TotalValue(quote QuoteFunc) (float64, []string) {
	value, unpriced := l.HoldingsValue(quote)
	return l.cash + value, unpriced
}

// Transactions returns an ordered copy of the transaction log.
func (l *Ledger) Transactions() []domain.Transaction {
	return slices.Clone(l.transactions)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
