// Package provider retrieves daily market data for the simulator. The core
// never fetches anything itself; it consumes a fully materialized History
// built from the bars a Provider returns.
package provider

import (
	"context"
	"log/slog"
	"time"

	"equisim/internal/domain"
	"equisim/internal/store"
)

// Provider fetches daily bars for a set of symbols over a date range.
type Provider interface {
	// FetchBars returns daily bars for the given symbols with timestamps in
	// [start, end]. Symbols with no data simply contribute no bars.
	FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error)
}

// Compile-time interface checks.
var _ Provider = (*StoreProvider)(nil)
var _ Provider = (*CachingProvider)(nil)

// StoreProvider serves bars from a BarStore only, for offline runs against
// an already-populated cache.
type StoreProvider struct {
	cache store.BarStore
}

// NewStoreProvider creates a Provider backed solely by the given store.
func NewStoreProvider(cache store.BarStore) *StoreProvider {
	return &StoreProvider{cache: cache}
}

// FetchBars reads each symbol's cached bars; symbols without cached data
// contribute nothing.
func (p *StoreProvider) FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	for _, symbol := range symbols {
		cached, err := p.cache.ReadBars(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}
		bars = append(bars, cached...)
	}
	return bars, nil
}

// CachingProvider reads bars through an on-disk cache, delegating to the
// remote provider only for symbols the cache knows nothing about, and writes
// fetched bars back.
type CachingProvider struct {
	remote Provider
	cache  store.BarStore
	log    *slog.Logger
}

// NewCachingProvider wraps remote with the given bar cache.
func NewCachingProvider(remote Provider, cache store.BarStore) *CachingProvider {
	return &CachingProvider{
		remote: remote,
		cache:  cache,
		log:    slog.Default().With("provider", "cache"),
	}
}

// FetchBars serves each symbol from the cache when it holds any bars in the
// requested range, fetches the remaining symbols remotely in one call, and
// persists what came back.
func (p *CachingProvider) FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	var missing []string

	for _, symbol := range symbols {
		cached, err := p.cache.ReadBars(ctx, symbol, start, end)
		if err != nil {
			return nil, err
		}
		if len(cached) == 0 {
			missing = append(missing, symbol)
			continue
		}
		bars = append(bars, cached...)
	}

	if len(missing) > 0 {
		p.log.Info("fetching uncached symbols", "symbols", missing)
		fetched, err := p.remote.FetchBars(ctx, missing, start, end)
		if err != nil {
			return nil, err
		}
		if err := p.cache.WriteBars(ctx, fetched); err != nil {
			return nil, err
		}
		bars = append(bars, fetched...)
	}
	return bars, nil
}
