package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/papertrader/internal/service"
)

// QuoteHandler handles HTTP requests for quote and leaderboard endpoints.
type QuoteHandler struct {
	svc *service.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(svc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{svc: svc}
}

// pricePointResponse is a single chart sample.
type pricePointResponse struct {
	Timestamp string          `json:"timestamp"`
	Close     decimal.Decimal `json:"close"`
}

// quoteResponse is the JSON response for GET /quotes/{symbol}.
type quoteResponse struct {
	Symbol      string               `json:"symbol"`
	Price       decimal.Decimal      `json:"price"`
	MarketState string               `json:"market_state"`
	ObservedAt  string               `json:"observed_at"`
	Points      []pricePointResponse `json:"points"`
}

// leaderboardEntryResponse is a single ranked account.
type leaderboardEntryResponse struct {
	Rank          int             `json:"rank"`
	AccountID     string          `json:"account_id"`
	DisplayName   string          `json:"display_name"`
	Cash          decimal.Decimal `json:"cash"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	NetWorth      decimal.Decimal `json:"net_worth"`
	MissingPrices []string        `json:"missing_prices,omitempty"`
}

// GetQuote handles GET /quotes/{symbol}?timeframe=.
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.GetQuote(r.Context(), chi.URLParam(r, "symbol"), r.URL.Query().Get("timeframe"))
	if err != nil {
		mapError(w, err)
		return
	}

	points := make([]pricePointResponse, len(q.Points))
	for i, p := range q.Points {
		points[i] = pricePointResponse{
			Timestamp: p.Timestamp.UTC().Format(timeFormat),
			Close:     p.Close,
		}
	}
	WriteJSON(w, http.StatusOK, quoteResponse{
		Symbol:      q.Symbol,
		Price:       q.Price,
		MarketState: q.MarketState,
		ObservedAt:  q.ObservedAt.UTC().Format(timeFormat),
		Points:      points,
	})
}

// Leaderboard handles GET /leaderboard.
func (h *QuoteHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.svc.Leaderboard(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}

	entries := make([]leaderboardEntryResponse, len(board))
	for i, e := range board {
		entries[i] = leaderboardEntryResponse{
			Rank:          e.Rank,
			AccountID:     e.AccountID,
			DisplayName:   e.DisplayName,
			Cash:          e.Cash,
			HoldingsValue: e.HoldingsValue,
			NetWorth:      e.NetWorth,
			MissingPrices: e.MissingPrices,
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}
