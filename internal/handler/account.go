package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/service"
)

const timeFormat = "2006-01-02T15:04:05Z"

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	svc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// displayNameRequest is the JSON body for POST /accounts/{account_id} and
// PUT /accounts/{account_id}/name.
type displayNameRequest struct {
	DisplayName *string `json:"display_name"`
}

// resetRequest is the JSON body for POST /accounts/{account_id}/reset.
type resetRequest struct {
	RegenerateName bool `json:"regenerate_name"`
}

// accountResponse is the JSON view of an account.
type accountResponse struct {
	AccountID   string            `json:"account_id"`
	DisplayName string            `json:"display_name"`
	Cash        decimal.Decimal   `json:"cash"`
	Holdings    []holdingResponse `json:"holdings"`
	Fingerprint string            `json:"fingerprint"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
}

// holdingResponse is a single holding in the account response.
type holdingResponse struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
}

// limitOrderResponse is the JSON view of a pending limit order.
type limitOrderResponse struct {
	OrderID    string          `json:"order_id"`
	Side       string          `json:"side"`
	Symbol     string          `json:"symbol"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	Quantity   decimal.Decimal `json:"quantity"`
	CreatedAt  string          `json:"created_at"`
}

// transactionResponse is the JSON view of a ledger record.
type transactionResponse struct {
	TransactionID string          `json:"transaction_id"`
	Kind          string          `json:"kind"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Outcome       string          `json:"outcome"`
	Reason        string          `json:"reason,omitempty"`
	OrderID       string          `json:"order_id,omitempty"`
	Timestamp     string          `json:"timestamp"`
}

func toAccountResponse(a *domain.Account) *accountResponse {
	if a == nil {
		return nil
	}
	holdings := make([]holdingResponse, 0, len(a.Holdings))
	for _, symbol := range a.Symbols() {
		holdings = append(holdings, holdingResponse{Symbol: symbol, Quantity: a.Holdings[symbol]})
	}
	return &accountResponse{
		AccountID:   a.AccountID,
		DisplayName: a.DisplayName,
		Cash:        a.Cash,
		Holdings:    holdings,
		Fingerprint: a.Fingerprint,
		CreatedAt:   a.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:   a.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toLimitOrderResponse(o domain.LimitOrder) limitOrderResponse {
	return limitOrderResponse{
		OrderID:    o.OrderID,
		Side:       string(o.Side),
		Symbol:     o.Symbol,
		LimitPrice: o.LimitPrice,
		Quantity:   o.Quantity,
		CreatedAt:  o.CreatedAt.UTC().Format(timeFormat),
	}
}

func toTransactionResponse(tx domain.Transaction) transactionResponse {
	return transactionResponse{
		TransactionID: tx.TransactionID,
		Kind:          string(tx.Kind),
		Symbol:        tx.Symbol,
		Quantity:      tx.Quantity,
		Price:         tx.Price,
		Outcome:       string(tx.Outcome),
		Reason:        tx.Reason,
		OrderID:       tx.OrderID,
		Timestamp:     tx.Timestamp.UTC().Format(timeFormat),
	}
}

// GetOrCreate handles POST /accounts/{account_id}.
func (h *AccountHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	var req displayNameRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	account, created, err := h.svc.GetOrCreate(r.Context(), chi.URLParam(r, "account_id"), req.DisplayName)
	if err != nil {
		mapError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, toAccountResponse(account))
}

// Get handles GET /accounts/{account_id}.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.svc.Get(chi.URLParam(r, "account_id"))
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

// Rename handles PUT /accounts/{account_id}/name.
func (h *AccountHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req displayNameRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	account, err := h.svc.Rename(chi.URLParam(r, "account_id"), req.DisplayName)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

// Reset handles POST /accounts/{account_id}/reset.
func (h *AccountHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	account, err := h.svc.Reset(r.Context(), chi.URLParam(r, "account_id"), req.RegenerateName)
	if err != nil {
		mapError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

// ListLimitOrders handles GET /accounts/{account_id}/limit-orders.
func (h *AccountHandler) ListLimitOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListLimitOrders(chi.URLParam(r, "account_id"))
	if err != nil {
		mapError(w, err)
		return
	}

	resp := make([]limitOrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toLimitOrderResponse(o)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

// ListTransactions handles GET /accounts/{account_id}/transactions.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil || limit < 1 || limit > 500 {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be an integer between 1 and 500")
			return
		}
	}

	txs, err := h.svc.ListTransactions(chi.URLParam(r, "account_id"), limit)
	if err != nil {
		mapError(w, err)
		return
	}

	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toTransactionResponse(tx)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"transactions": resp})
}
