package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/engine"
)

// TradeRequest represents the input for an immediate buy or sell.
type TradeRequest struct {
	AccountID string
	Symbol    string
	Quantity  decimal.Decimal
	// Price is the execution price. Nil executes at a live quote.
	Price *decimal.Decimal
	// Fingerprint is the caller's last observed account fingerprint.
	Fingerprint *string
}

// PlaceLimitOrderRequest represents the input for limit order placement.
type PlaceLimitOrderRequest struct {
	AccountID  string
	Side       domain.OrderSide
	Symbol     string
	LimitPrice decimal.Decimal
	Quantity   decimal.Decimal
}

// TradeService handles interactive trading.
type TradeService struct {
	trader       *engine.Trader
	quotes       engine.QuoteSource
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewTradeService creates a new TradeService.
func NewTradeService(trader *engine.Trader, quotes engine.QuoteSource, fetchTimeout time.Duration, logger *slog.Logger) *TradeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TradeService{
		trader:       trader,
		quotes:       quotes,
		fetchTimeout: fetchTimeout,
		logger:       logger.With("component", "trade-service"),
	}
}

// Buy executes an immediate buy.
func (s *TradeService) Buy(ctx context.Context, req TradeRequest) (engine.TradeResult, error) {
	engineReq, err := s.prepare(ctx, req)
	if err != nil {
		return engine.TradeResult{}, err
	}
	return s.trader.Buy(ctx, engineReq)
}

// Sell executes an immediate sell.
func (s *TradeService) Sell(ctx context.Context, req TradeRequest) (engine.TradeResult, error) {
	engineReq, err := s.prepare(ctx, req)
	if err != nil {
		return engine.TradeResult{}, err
	}
	return s.trader.Sell(ctx, engineReq)
}

// prepare validates the request and resolves a missing price from a live
// quote. The quote is fetched before the trade takes the engine lock.
func (s *TradeService) prepare(ctx context.Context, req TradeRequest) (engine.TradeRequest, error) {
	if err := validateAccountID(req.AccountID); err != nil {
		return engine.TradeRequest{}, err
	}
	symbol, err := domain.NormalizeSymbol(req.Symbol)
	if err != nil {
		return engine.TradeRequest{}, err
	}
	if err := domain.RequirePositive("quantity", req.Quantity); err != nil {
		return engine.TradeRequest{}, err
	}

	out := engine.TradeRequest{
		AccountID:   req.AccountID,
		Symbol:      symbol,
		Quantity:    req.Quantity,
		Fingerprint: req.Fingerprint,
	}
	if req.Price != nil {
		out.Price = *req.Price
		return out, nil
	}

	fctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()
	q, err := s.quotes.Fetch(fctx, symbol, domain.TimeframeLive)
	if err != nil {
		s.logger.Warn("live quote unavailable for trade",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return engine.TradeRequest{}, err
	}
	out.Price = q.Price
	return out, nil
}

// PlaceLimitOrder adds a pending limit order.
func (s *TradeService) PlaceLimitOrder(ctx context.Context, req PlaceLimitOrderRequest) (domain.LimitOrder, error) {
	if err := validateAccountID(req.AccountID); err != nil {
		return domain.LimitOrder{}, err
	}
	return s.trader.PlaceLimitOrder(ctx, engine.LimitOrderRequest{
		AccountID:  req.AccountID,
		Side:       req.Side,
		Symbol:     req.Symbol,
		LimitPrice: req.LimitPrice,
		Quantity:   req.Quantity,
	})
}
