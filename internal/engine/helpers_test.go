package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/store"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeQuotes serves fixed prices per symbol and counts fetches.
type fakeQuotes struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	fail   map[string]error
	calls  map[string]int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{
		prices: make(map[string]decimal.Decimal),
		fail:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeQuotes) set(symbol, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = d(price)
	delete(f.fail, symbol)
}

func (f *fakeQuotes) failWith(symbol string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[symbol] = err
}

func (f *fakeQuotes) count(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

func (f *fakeQuotes) Fetch(_ context.Context, symbol string, _ domain.Timeframe) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if err, ok := f.fail[symbol]; ok {
		return domain.Quote{}, err
	}
	p, ok := f.prices[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrSymbolNotFound
	}
	return domain.Quote{Symbol: symbol, Price: p, ObservedAt: time.Now()}, nil
}

var errUpstream = &domain.UpstreamError{Symbol: "X", Err: errors.New("connection refused")}

// testEngine bundles an in-memory engine.
type testEngine struct {
	accounts  *store.AccountStore
	ledger    *store.Ledger
	book      *OrderBook
	verifier  *IntegrityVerifier
	trader    *Trader
	quotes    *fakeQuotes
	evaluator *OrderEvaluator
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	logger := discardLogger()
	accounts := store.NewAccountStore(nil, logger)
	ledger := store.NewLedger(context.Background(), nil, logger)
	book := NewOrderBook(nil, nil, logger)
	verifier := NewIntegrityVerifier(time.Minute, accounts, nil, logger)
	trader := NewTrader(accounts, book, ledger, verifier, nil, logger)
	quotes := newFakeQuotes()
	evaluator := NewOrderEvaluator(time.Second, time.Second, book, accounts, trader, quotes, nil, logger)
	return &testEngine{
		accounts:  accounts,
		ledger:    ledger,
		book:      book,
		verifier:  verifier,
		trader:    trader,
		quotes:    quotes,
		evaluator: evaluator,
	}
}

func (e *testEngine) newAccount(t *testing.T, id string) *domain.Account {
	t.Helper()
	a, _, err := e.accounts.GetOrCreate(id, "", false)
	if err != nil {
		t.Fatalf("create account %s: %v", id, err)
	}
	return a
}

func (e *testEngine) account(t *testing.T, id string) *domain.Account {
	t.Helper()
	a, err := e.accounts.Get(id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return a
}

func (e *testEngine) buy(t *testing.T, id, symbol, qty, price string) {
	t.Helper()
	if _, err := e.trader.Buy(context.Background(), TradeRequest{
		AccountID: id, Symbol: symbol, Quantity: d(qty), Price: d(price),
	}); err != nil {
		t.Fatalf("buy %s %s@%s: %v", symbol, qty, price, err)
	}
}

func (e *testEngine) place(t *testing.T, id string, side domain.OrderSide, symbol, limit, qty string) domain.LimitOrder {
	t.Helper()
	o, err := e.trader.PlaceLimitOrder(context.Background(), LimitOrderRequest{
		AccountID: id, Side: side, Symbol: symbol, LimitPrice: d(limit), Quantity: d(qty),
	})
	if err != nil {
		t.Fatalf("place %s %s: %v", side, symbol, err)
	}
	return o
}

func assertCash(t *testing.T, a *domain.Account, want string) {
	t.Helper()
	if !a.Cash.Equal(d(want)) {
		t.Errorf("cash = %s, want %s", a.Cash, want)
	}
}

func assertHolding(t *testing.T, a *domain.Account, symbol, want string) {
	t.Helper()
	if !a.Quantity(symbol).Equal(d(want)) {
		t.Errorf("holding %s = %s, want %s", symbol, a.Quantity(symbol), want)
	}
}

func lastTx(t *testing.T, l *store.Ledger, accountID string) domain.Transaction {
	t.Helper()
	txs := l.ListByAccount(accountID, 1)
	if len(txs) == 0 {
		t.Fatalf("no transactions for %s", accountID)
	}
	return txs[0]
}
