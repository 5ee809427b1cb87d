package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/store"
)

// TradeRequest is an immediate buy or sell.
type TradeRequest struct {
	AccountID string
	Symbol    string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	// Fingerprint is the caller's last observed fingerprint. Nil skips
	// verification.
	Fingerprint *string
}

// LimitOrderRequest places a pending limit order.
type LimitOrderRequest struct {
	AccountID  string
	Side       domain.OrderSide
	Symbol     string
	LimitPrice decimal.Decimal
	Quantity   decimal.Decimal
}

// TradeResult is the outcome of an immediate trade.
type TradeResult struct {
	Account     *domain.Account
	Transaction domain.Transaction
}

// Trader applies every balance-changing operation. A single mutex
// serializes buys, sells, settlements, resets and deletes, so each one is
// atomic with respect to the others.
type Trader struct {
	mu       sync.Mutex
	accounts *store.AccountStore
	book     *OrderBook
	ledger   *store.Ledger
	verifier *IntegrityVerifier
	metrics  *Metrics
	logger   *slog.Logger
}

// NewTrader creates a Trader.
func NewTrader(
	accounts *store.AccountStore,
	book *OrderBook,
	ledger *store.Ledger,
	verifier *IntegrityVerifier,
	metrics *Metrics,
	logger *slog.Logger,
) *Trader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trader{
		accounts: accounts,
		book:     book,
		ledger:   ledger,
		verifier: verifier,
		metrics:  metrics,
		logger:   logger.With("component", "trader"),
	}
}

// Buy debits quantity × price from cash and credits the holding.
func (t *Trader) Buy(ctx context.Context, req TradeRequest) (TradeResult, error) {
	return t.trade(ctx, domain.OrderSideBuy, req)
}

// Sell debits the holding and credits quantity × price to cash.
func (t *Trader) Sell(ctx context.Context, req TradeRequest) (TradeResult, error) {
	return t.trade(ctx, domain.OrderSideSell, req)
}

func (t *Trader) trade(ctx context.Context, side domain.OrderSide, req TradeRequest) (TradeResult, error) {
	symbol, err := validateTrade(req.Symbol, req.Quantity, req.Price)
	if err != nil {
		return TradeResult{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	kind := domain.TransactionBuy
	if side == domain.OrderSideSell {
		kind = domain.TransactionSell
	}
	account, tx, err := t.applyLocked(ctx, side, kind, req.AccountID, symbol, req.Quantity, req.Price, req.Fingerprint, "")
	return TradeResult{Account: account, Transaction: tx}, err
}

// applyLocked runs one buy or sell against the account and records the
// attempt in the ledger. An unknown account is returned before anything is
// recorded. Caller must hold t.mu.
func (t *Trader) applyLocked(
	ctx context.Context,
	side domain.OrderSide,
	kind domain.TransactionKind,
	accountID, symbol string,
	qty, price decimal.Decimal,
	fingerprint *string,
	orderID string,
) (*domain.Account, domain.Transaction, error) {
	account, err := t.accounts.Update(accountID, func(a *domain.Account) error {
		if t.verifier != nil {
			if err := t.verifier.Verify(a, fingerprint); err != nil {
				return err
			}
		}
		cost := domain.Cost(qty, price)
		switch side {
		case domain.OrderSideBuy:
			if a.Cash.LessThan(cost) {
				return domain.ErrInsufficientFunds
			}
			a.Cash = a.Cash.Sub(cost)
			a.Credit(symbol, qty)
		case domain.OrderSideSell:
			if a.Quantity(symbol).LessThan(qty) {
				return domain.ErrInsufficientHoldings
			}
			a.Debit(symbol, qty)
			a.Cash = a.Cash.Add(cost)
		}
		return nil
	})
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.Transaction{}, err
	}

	tx := domain.Transaction{
		AccountID: accountID,
		Kind:      kind,
		Symbol:    symbol,
		Quantity:  qty,
		Price:     price,
		Outcome:   domain.OutcomeSuccess,
		OrderID:   orderID,
	}
	if err != nil {
		tx.Outcome = domain.OutcomeFailed
		tx.Reason = err.Error()
	}
	tx = t.ledger.Append(ctx, tx)
	t.metrics.ObserveTrade(string(side), string(tx.Outcome))

	if err != nil {
		t.logger.Info("trade rejected",
			slog.String("account_id", accountID),
			slog.String("kind", string(kind)),
			slog.String("symbol", symbol),
			slog.String("reason", tx.Reason),
		)
		return nil, tx, err
	}
	return account, tx, nil
}

// PlaceLimitOrder adds a pending order for an existing account and records
// a pending ledger entry. Funds and holdings are only checked at
// settlement.
func (t *Trader) PlaceLimitOrder(ctx context.Context, req LimitOrderRequest) (domain.LimitOrder, error) {
	if !req.Side.Valid() {
		return domain.LimitOrder{}, &domain.ValidationError{Message: "side must be one of: buy, sell"}
	}
	symbol, err := validateTrade(req.Symbol, req.Quantity, req.LimitPrice)
	if err != nil {
		return domain.LimitOrder{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.accounts.Exists(req.AccountID) {
		return domain.LimitOrder{}, domain.ErrAccountNotFound
	}
	order := t.book.Add(domain.LimitOrder{
		OwnerID:    req.AccountID,
		Side:       req.Side,
		Symbol:     symbol,
		LimitPrice: req.LimitPrice,
		Quantity:   req.Quantity,
	})
	t.ledger.Append(ctx, domain.Transaction{
		AccountID: req.AccountID,
		Kind:      domain.LimitKind(req.Side),
		Symbol:    symbol,
		Quantity:  req.Quantity,
		Price:     req.LimitPrice,
		Timestamp: order.CreatedAt,
		Outcome:   domain.OutcomePending,
		OrderID:   order.OrderID,
	})

	t.logger.Info("limit order placed",
		slog.String("order_id", order.OrderID),
		slog.String("account_id", req.AccountID),
		slog.String("side", string(req.Side)),
		slog.String("symbol", symbol),
		slog.String("limit_price", req.LimitPrice.String()),
		slog.String("quantity", req.Quantity.String()),
	)
	return order, nil
}

// Settle removes order from the pending set and applies it at price. The
// order is removed whatever the outcome; a non-positive price fails the
// settlement without touching the account. It returns false if the order was
// no longer pending, in which case nothing happens.
func (t *Trader) Settle(ctx context.Context, order domain.LimitOrder, price decimal.Decimal) (domain.OrderOutcome, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.book.Remove(order.OrderID) {
		return "", false
	}
	if !t.accounts.Exists(order.OwnerID) {
		return t.discardedLocked(order), true
	}

	var (
		tx  domain.Transaction
		err error
	)
	if err = domain.RequirePositive("price", price); err != nil {
		tx = t.ledger.Append(ctx, domain.Transaction{
			AccountID: order.OwnerID,
			Kind:      domain.LimitKind(order.Side),
			Symbol:    order.Symbol,
			Quantity:  order.Quantity,
			Price:     price,
			Outcome:   domain.OutcomeFailed,
			Reason:    err.Error(),
			OrderID:   order.OrderID,
		})
		t.metrics.ObserveTrade(string(order.Side), string(tx.Outcome))
	} else {
		_, tx, err = t.applyLocked(ctx, order.Side, domain.LimitKind(order.Side),
			order.OwnerID, order.Symbol, order.Quantity, price, nil, order.OrderID)
	}
	outcome := domain.OrderOutcomeSettled
	if err != nil {
		outcome = domain.OrderOutcomeFailedAtSettlement
	}
	t.metrics.ObserveLimitOutcome(string(outcome))
	t.logger.Info("limit order resolved",
		slog.String("order_id", order.OrderID),
		slog.String("account_id", order.OwnerID),
		slog.String("outcome", string(outcome)),
		slog.String("price", price.String()),
		slog.String("transaction_id", tx.TransactionID),
	)
	return outcome, true
}

// Discard removes an order whose owner no longer exists. It returns false
// if the order was no longer pending or its owner exists.
func (t *Trader) Discard(order domain.LimitOrder) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accounts.Exists(order.OwnerID) {
		return false
	}
	if !t.book.Remove(order.OrderID) {
		return false
	}
	t.discardedLocked(order)
	return true
}

func (t *Trader) discardedLocked(order domain.LimitOrder) domain.OrderOutcome {
	t.metrics.ObserveLimitOutcome(string(domain.OrderOutcomeOwnerMissing))
	t.logger.Warn("limit order discarded, owner missing",
		slog.String("order_id", order.OrderID),
		slog.String("account_id", order.OwnerID),
	)
	return domain.OrderOutcomeOwnerMissing
}

// ResetAccount purges the account's pending orders and restores default
// balances. With regenerateName the display name is replaced too.
func (t *Trader) ResetAccount(_ context.Context, accountID string, regenerateName bool) (*domain.Account, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}
	purged := t.book.RemoveByOwner(accountID)
	a, err := t.accounts.Reset(accountID, regenerateName)
	if err != nil {
		return nil, err
	}
	t.logger.Info("account reset",
		slog.String("account_id", accountID),
		slog.Int("orders_purged", len(purged)),
	)
	return a, nil
}

// DeleteAccount removes the account. Its pending orders stay in the book
// and are discarded by the next evaluation.
func (t *Trader) DeleteAccount(_ context.Context, accountID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.accounts.Delete(accountID); err != nil {
		return err
	}
	t.logger.Warn("account deleted", slog.String("account_id", accountID))
	return nil
}

func validateTrade(rawSymbol string, qty, price decimal.Decimal) (string, error) {
	symbol, err := domain.NormalizeSymbol(rawSymbol)
	if err != nil {
		return "", err
	}
	if err := domain.RequirePositive("quantity", qty); err != nil {
		return "", err
	}
	if qty.LessThanOrEqual(domain.HoldingEpsilon) {
		return "", &domain.ValidationError{
			Message: fmt.Sprintf("quantity must be greater than %s", domain.HoldingEpsilon),
		}
	}
	if err := domain.RequirePositive("price", price); err != nil {
		return "", err
	}
	return symbol, nil
}
