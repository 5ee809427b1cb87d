package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/engine"
	"github.com/efreitasn/papertrader/internal/service"
)

// TradeHandler handles HTTP requests for trading endpoints.
type TradeHandler struct {
	svc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(svc *service.TradeService) *TradeHandler {
	return &TradeHandler{svc: svc}
}

// tradeRequest is the JSON body for POST /accounts/{account_id}/buy and
// /sell. Price is optional; without it the trade executes at a live quote.
type tradeRequest struct {
	Symbol      string           `json:"symbol"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Price       *decimal.Decimal `json:"price"`
	Fingerprint *string          `json:"fingerprint"`
}

// limitOrderRequest is the JSON body for POST
// /accounts/{account_id}/limit-orders.
type limitOrderRequest struct {
	Side       string          `json:"side"`
	Symbol     string          `json:"symbol"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// tradeResponse is the JSON response for a successful trade.
type tradeResponse struct {
	Account     *accountResponse    `json:"account"`
	Transaction transactionResponse `json:"transaction"`
}

// Buy handles POST /accounts/{account_id}/buy.
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.svc.Buy)
}

// Sell handles POST /accounts/{account_id}/sell.
func (h *TradeHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.svc.Sell)
}

type tradeFunc func(ctx context.Context, req service.TradeRequest) (engine.TradeResult, error)

func (h *TradeHandler) trade(w http.ResponseWriter, r *http.Request, do tradeFunc) {
	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := do(r.Context(), service.TradeRequest{
		AccountID:   chi.URLParam(r, "account_id"),
		Symbol:      req.Symbol,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Fingerprint: req.Fingerprint,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, tradeResponse{
		Account:     toAccountResponse(res.Account),
		Transaction: toTransactionResponse(res.Transaction),
	})
}

// PlaceLimitOrder handles POST /accounts/{account_id}/limit-orders.
func (h *TradeHandler) PlaceLimitOrder(w http.ResponseWriter, r *http.Request) {
	var req limitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.svc.PlaceLimitOrder(r.Context(), service.PlaceLimitOrderRequest{
		AccountID:  chi.URLParam(r, "account_id"),
		Side:       domain.OrderSide(req.Side),
		Symbol:     req.Symbol,
		LimitPrice: req.LimitPrice,
		Quantity:   req.Quantity,
	})
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, toLimitOrderResponse(order))
}
