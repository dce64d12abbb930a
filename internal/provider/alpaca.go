package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"equisim/internal/domain"
	"equisim/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider fetches daily OHLCV bars from the Alpaca market-data API.
type AlpacaProvider struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	feed    string
	log     *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider with the given credentials.
// dataURL and feed may be empty to use the API defaults.
func NewAlpacaProvider(apiKey, apiSecret, dataURL, feed string, rateLimitPerMin int) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 200
	}
	return &AlpacaProvider{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(rateLimitPerMin),
		feed:    feed,
		log:     slog.Default().With("provider", "alpaca"),
	}
}

// FetchBars fetches daily bars for all symbols in a single multi-bar request,
// retried with backoff on transient failures.
func (p *AlpacaProvider) FetchBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	}
	if p.feed != "" {
		req.Feed = marketdata.Feed(p.feed)
	}

	var multiBars map[string][]marketdata.Bar
	err := util.Retry(ctx, 3, 2*time.Second, func() error {
		var err error
		multiBars, err = p.client.GetMultiBars(symbols, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:    strings.ToUpper(symbol),
				Timestamp: ab.Timestamp,
				Open:      ab.Open,
				High:      ab.High,
				Low:       ab.Low,
				Close:     ab.Close,
				Volume:    int64(ab.Volume),
			})
		}
	}
	p.log.Info("fetched daily bars", "symbols", len(symbols), "bars", len(bars))
	return bars, nil
}
