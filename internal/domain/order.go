package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether a limit order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Valid reports whether s is a known side.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderOutcome is the terminal state a pending limit order ends in. Every
// outcome removes the order from the pending set.
type OrderOutcome string

const (
	OrderOutcomeSettled            OrderOutcome = "settled"
	OrderOutcomeOwnerMissing       OrderOutcome = "discarded_owner_missing"
	OrderOutcomeFailedAtSettlement OrderOutcome = "failed_at_settlement"
)

// LimitOrder is a one-shot instruction to trade when the quoted price
// crosses LimitPrice. It settles in full or not at all.
type LimitOrder struct {
	OrderID    string          `json:"order_id"`
	OwnerID    string          `json:"owner_id"`
	Side       OrderSide       `json:"side"`
	Symbol     string          `json:"symbol"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	Quantity   decimal.Decimal `json:"quantity"`
	CreatedAt  time.Time       `json:"created_at"`
	Seq        uint64          `json:"seq"` // insertion sequence within the pending set
}

// Crosses reports whether a quote at price triggers the order: a buy
// settles at or below its limit, a sell at or above it.
func (o *LimitOrder) Crosses(price decimal.Decimal) bool {
	switch o.Side {
	case OrderSideBuy:
		return price.LessThanOrEqual(o.LimitPrice)
	case OrderSideSell:
		return price.GreaterThanOrEqual(o.LimitPrice)
	}
	return false
}
