// Package store implements the on-disk price cache: daily bars persisted in
// Parquet, SQLite, or CSV form so repeated simulations do not refetch market
// data.
package store

import (
	"context"
	"time"

	"equisim/internal/domain"
)

// BarStore persists and retrieves daily bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with what is already
	// stored. A re-written (symbol, day) pair overwrites the old record.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns the stored bars for symbol with timestamps in
	// [start, end], in date order.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bars, sorted.
	ListSymbols(ctx context.Context) ([]string, error)
}
