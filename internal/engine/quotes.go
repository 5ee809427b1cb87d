package engine

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
)

// QuoteSource fetches the current quote for a symbol.
type QuoteSource interface {
	Fetch(ctx context.Context, symbol string, tf domain.Timeframe) (domain.Quote, error)
}

// QuoteCache holds the last known quote per symbol.
type QuoteCache interface {
	Put(ctx context.Context, q domain.Quote) error
	Get(ctx context.Context, symbol string) (domain.Quote, bool, error)
}

// CachingQuoteSource wraps a QuoteSource and records every successful
// fetch in a QuoteCache, so any code path that fetches a quote refreshes
// the last known price.
type CachingQuoteSource struct {
	source  QuoteSource
	cache   QuoteCache
	metrics *Metrics
	logger  *slog.Logger
}

// NewCachingQuoteSource creates the decorator.
func NewCachingQuoteSource(source QuoteSource, cache QuoteCache, metrics *Metrics, logger *slog.Logger) *CachingQuoteSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingQuoteSource{
		source:  source,
		cache:   cache,
		metrics: metrics,
		logger:  logger.With("component", "quote-cache"),
	}
}

// Fetch fetches from the wrapped source and caches the result.
func (c *CachingQuoteSource) Fetch(ctx context.Context, symbol string, tf domain.Timeframe) (domain.Quote, error) {
	q, err := c.source.Fetch(ctx, symbol, tf)
	if err != nil {
		c.metrics.ObserveQuoteError()
		return domain.Quote{}, err
	}
	if err := c.cache.Put(ctx, q); err != nil {
		c.logger.Warn("cache quote failed",
			slog.String("symbol", q.Symbol),
			slog.String("error", err.Error()),
		)
	}
	return q, nil
}

// LastPrice returns the last cached price for symbol. A cache read error
// is logged and reported as a miss.
func (c *CachingQuoteSource) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool) {
	q, ok, err := c.cache.Get(ctx, symbol)
	if err != nil {
		c.logger.Warn("read cached quote failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return decimal.Zero, false
	}
	if !ok {
		return decimal.Zero, false
	}
	return q.Price, true
}
