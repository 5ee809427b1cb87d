package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/engine"
	"github.com/efreitasn/papertrader/internal/store"
)

// maxConcurrentFetches bounds leaderboard quote refreshes in flight.
const maxConcurrentFetches = 8

// PriceSource fetches quotes and serves the last known price per symbol.
type PriceSource interface {
	engine.QuoteSource
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool)
}

// LeaderboardEntry is one ranked account valuation.
type LeaderboardEntry struct {
	Rank int
	domain.Valuation
}

// QuoteService handles quote lookups and the leaderboard.
type QuoteService struct {
	accounts     *store.AccountStore
	quotes       PriceSource
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(accounts *store.AccountStore, quotes PriceSource, fetchTimeout time.Duration, logger *slog.Logger) *QuoteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteService{
		accounts:     accounts,
		quotes:       quotes,
		fetchTimeout: fetchTimeout,
		logger:       logger.With("component", "quote-service"),
	}
}

// GetQuote returns the current quote and chart points for symbol over
// timeframe. An empty timeframe means ALL.
func (s *QuoteService) GetQuote(ctx context.Context, symbol, timeframe string) (domain.Quote, error) {
	sym, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	tf, err := domain.ParseTimeframe(timeframe)
	if err != nil {
		return domain.Quote{}, err
	}

	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	return s.quotes.Fetch(fctx, sym, tf)
}

// Leaderboard refreshes the price of every held symbol concurrently, then
// values every account and ranks them by net worth, highest first. A failed
// refresh falls back to the last known price; a symbol with no price at all
// contributes zero. Ties keep account creation order.
func (s *QuoteService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	accounts := s.accounts.List()

	seen := make(map[string]struct{})
	var symbols []string
	for _, a := range accounts {
		for _, sym := range a.Symbols() {
			if _, ok := seen[sym]; !ok {
				seen[sym] = struct{}{}
				symbols = append(symbols, sym)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, sym := range symbols {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, s.fetchTimeout)
			defer cancel()
			if _, err := s.quotes.Fetch(fctx, sym, domain.TimeframeLive); err != nil {
				s.logger.Warn("leaderboard quote refresh failed",
					slog.String("symbol", sym),
					slog.String("error", err.Error()),
				)
			}
			return nil // fall back to the cached price
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lookup := func(symbol string) (decimal.Decimal, bool) {
		return s.quotes.LastPrice(ctx, symbol)
	}
	entries := make([]LeaderboardEntry, 0, len(accounts))
	for _, a := range accounts {
		v := domain.Value(a, lookup)
		if len(v.MissingPrices) > 0 {
			s.logger.Warn("no known price, valued at zero",
				slog.String("account_id", a.AccountID),
				slog.Any("symbols", v.MissingPrices),
			)
		}
		entries = append(entries, LeaderboardEntry{Valuation: v})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].NetWorth.GreaterThan(entries[j].NetWorth)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
