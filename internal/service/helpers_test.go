package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/engine"
	"github.com/efreitasn/papertrader/internal/store"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubQuotes serves fixed prices; symbols set to fail return an upstream
// error.
type stubQuotes struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	fail   map[string]bool
	calls  int
}

func newStubQuotes() *stubQuotes {
	return &stubQuotes{prices: make(map[string]decimal.Decimal), fail: make(map[string]bool)}
}

func (q *stubQuotes) set(symbol, price string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prices[symbol] = d(price)
	q.fail[symbol] = false
}

func (q *stubQuotes) setFailing(symbol string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fail[symbol] = true
}

func (q *stubQuotes) Fetch(_ context.Context, symbol string, _ domain.Timeframe) (domain.Quote, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.fail[symbol] {
		return domain.Quote{}, &domain.UpstreamError{Symbol: symbol, Status: 503}
	}
	p, ok := q.prices[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrSymbolNotFound
	}
	return domain.Quote{Symbol: symbol, Price: p, ObservedAt: time.Now()}, nil
}

type testServices struct {
	accounts *store.AccountStore
	book     *engine.OrderBook
	stub     *stubQuotes
	account  *AccountService
	trade    *TradeService
	quote    *QuoteService
}

func newTestServices(t *testing.T, policy MissingNamePolicy) *testServices {
	t.Helper()
	logger := discardLogger()
	accounts := store.NewAccountStore(nil, logger)
	ledger := store.NewLedger(context.Background(), nil, logger)
	book := engine.NewOrderBook(nil, nil, logger)
	verifier := engine.NewIntegrityVerifier(time.Minute, accounts, nil, logger)
	trader := engine.NewTrader(accounts, book, ledger, verifier, nil, logger)
	stub := newStubQuotes()
	quotes := engine.NewCachingQuoteSource(stub, store.NewMemoryQuoteCache(), nil, logger)

	return &testServices{
		accounts: accounts,
		book:     book,
		stub:     stub,
		account:  NewAccountService(accounts, ledger, book, trader, policy, logger),
		trade:    NewTradeService(trader, quotes, time.Second, logger),
		quote:    NewQuoteService(accounts, quotes, time.Second, logger),
	}
}
