package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/store"
)

// EvaluationReport summarizes one pass over the pending set.
type EvaluationReport struct {
	Evaluated int
	Settled   int
	Failed    int // removed after failing at settlement
	Discarded int // owner no longer exists
	Skipped   int // quote unavailable; order stays pending
}

// OrderEvaluator periodically checks every pending limit order against a
// fresh quote and settles the ones whose limit is crossed.
type OrderEvaluator struct {
	interval     time.Duration
	fetchTimeout time.Duration
	book         *OrderBook
	accounts     *store.AccountStore
	trader       *Trader
	quotes       QuoteSource
	metrics      *Metrics
	logger       *slog.Logger
	running      atomic.Bool
}

// NewOrderEvaluator creates an evaluator ticking every interval. Each quote
// fetch is bounded by fetchTimeout.
func NewOrderEvaluator(
	interval, fetchTimeout time.Duration,
	book *OrderBook,
	accounts *store.AccountStore,
	trader *Trader,
	quotes QuoteSource,
	metrics *Metrics,
	logger *slog.Logger,
) *OrderEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderEvaluator{
		interval:     interval,
		fetchTimeout: fetchTimeout,
		book:         book,
		accounts:     accounts,
		trader:       trader,
		quotes:       quotes,
		metrics:      metrics,
		logger:       logger.With("component", "order-evaluator"),
	}
}

// Start launches a background goroutine that evaluates the pending set at
// the configured interval. It stops when ctx is cancelled.
func (e *OrderEvaluator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.Evaluate(ctx)
			}
		}
	}()
}

type fetchResult struct {
	price decimal.Decimal
	err   error
}

// Evaluate runs one pass over the pending set, newest order first. A quote
// is fetched at most once per symbol; a failed fetch skips only the orders
// for that symbol. It returns false without evaluating if a previous pass
// is still running.
func (e *OrderEvaluator) Evaluate(ctx context.Context) (EvaluationReport, bool) {
	if !e.running.CompareAndSwap(false, true) {
		e.logger.Warn("order evaluation still running, tick skipped")
		return EvaluationReport{}, false
	}
	defer e.running.Store(false)

	start := time.Now()
	var report EvaluationReport
	fetched := make(map[string]fetchResult)

	for _, order := range e.book.Pending() {
		if ctx.Err() != nil {
			break
		}
		report.Evaluated++

		if !e.accounts.Exists(order.OwnerID) {
			if e.trader.Discard(order) {
				report.Discarded++
			}
			continue
		}

		res, ok := fetched[order.Symbol]
		if !ok {
			res = e.fetch(ctx, order.Symbol)
			fetched[order.Symbol] = res
		}
		if res.err != nil {
			report.Skipped++
			continue
		}
		if !order.Crosses(res.price) {
			continue
		}

		outcome, applied := e.trader.Settle(ctx, order, res.price)
		if !applied {
			continue
		}
		switch outcome {
		case domain.OrderOutcomeSettled:
			report.Settled++
		case domain.OrderOutcomeFailedAtSettlement:
			report.Failed++
		case domain.OrderOutcomeOwnerMissing:
			report.Discarded++
		}
	}

	e.metrics.ObserveLoop("order_evaluation", time.Since(start))
	if report.Evaluated > 0 {
		e.logger.Info("order evaluation completed",
			slog.Int("evaluated", report.Evaluated),
			slog.Int("settled", report.Settled),
			slog.Int("failed", report.Failed),
			slog.Int("discarded", report.Discarded),
			slog.Int("skipped", report.Skipped),
			slog.Duration("duration", time.Since(start)),
		)
	}
	return report, true
}

func (e *OrderEvaluator) fetch(ctx context.Context, symbol string) fetchResult {
	fctx := ctx
	if e.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, e.fetchTimeout)
		defer cancel()
	}

	q, err := e.quotes.Fetch(fctx, symbol, domain.TimeframeLive)
	if err != nil {
		e.logger.Warn("quote unavailable, orders skipped",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return fetchResult{err: err}
	}
	return fetchResult{price: q.Price}
}
