// Package domain defines the shared data types used across the equisim
// simulator: daily bars, executed transactions, trade signals, and the
// time-series points that make up equity and cash curves.
package domain

import "time"

// Action is the side of an executed transaction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Bar is one daily OHLCV record for a single symbol.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Transaction is one executed trade as recorded by the ledger. Quantity is
// always positive; the side is carried by Action. Notional is
// Quantity * Price.
type Transaction struct {
	Date     time.Time
	Ticker   string
	Action   Action
	Quantity int
	Price    float64
	Notional float64
}

// Signal maps ticker to a desired trade delta: positive quantities are buys,
// negative quantities are sells. A Signal never contains zero entries.
type Signal map[string]int

// CurvePoint is one (date, value) sample of a daily time series.
type CurvePoint struct {
	Date  time.Time
	Value float64
}
