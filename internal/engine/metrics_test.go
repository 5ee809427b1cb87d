package engine

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/store"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTrade("buy", "success")
	m.ObserveLimitOutcome("settled")
	m.ObserveQuoteError()
	m.ObserveDrift()
	m.ObserveStaleFingerprint()
	m.SetPendingOrders(3)
	m.ObserveLoop("order_evaluation", time.Second)
}

func TestMetrics_RecordsEngineActivity(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	logger := discardLogger()

	accounts := store.NewAccountStore(nil, logger)
	ledger := store.NewLedger(context.Background(), nil, logger)
	book := NewOrderBook(nil, m, logger)
	trader := NewTrader(accounts, book, ledger, NewIntegrityVerifier(time.Minute, accounts, m, logger), m, logger)
	quotes := newFakeQuotes()
	evaluator := NewOrderEvaluator(time.Second, time.Second, book, accounts, trader, quotes, m, logger)

	_, _, _ = accounts.GetOrCreate("acct-1", "", false)
	_, _ = trader.Buy(context.Background(), TradeRequest{AccountID: "acct-1", Symbol: "AAPL", Quantity: d("1"), Price: d("10")})
	_, _ = trader.Buy(context.Background(), TradeRequest{AccountID: "acct-1", Symbol: "AAPL", Quantity: d("1"), Price: d("1000000")})
	_, _ = trader.PlaceLimitOrder(context.Background(), LimitOrderRequest{
		AccountID: "acct-1", Side: domain.OrderSideBuy, Symbol: "TSLA", LimitPrice: d("200"), Quantity: d("1"),
	})

	if got := testutil.ToFloat64(m.Trades.WithLabelValues("buy", "success")); got != 1 {
		t.Errorf("successful buys = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Trades.WithLabelValues("buy", "failed")); got != 1 {
		t.Errorf("failed buys = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PendingOrders); got != 1 {
		t.Errorf("pending orders = %v, want 1", got)
	}

	quotes.set("TSLA", "150")
	evaluator.Evaluate(context.Background())
	if got := testutil.ToFloat64(m.LimitSettlements.WithLabelValues("settled")); got != 1 {
		t.Errorf("settled limit orders = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PendingOrders); got != 0 {
		t.Errorf("pending orders = %v, want 0", got)
	}
}
