package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind identifies the operation a ledger record describes.
type TransactionKind string

const (
	TransactionBuy       TransactionKind = "buy"
	TransactionSell      TransactionKind = "sell"
	TransactionLimitBuy  TransactionKind = "limit_buy"
	TransactionLimitSell TransactionKind = "limit_sell"
)

// LimitKind maps an order side to its ledger kind.
func LimitKind(side OrderSide) TransactionKind {
	if side == OrderSideSell {
		return TransactionLimitSell
	}
	return TransactionLimitBuy
}

// TransactionOutcome is the result recorded for an attempted trade.
type TransactionOutcome string

const (
	OutcomeSuccess TransactionOutcome = "success"
	OutcomeFailed  TransactionOutcome = "failed"
	OutcomePending TransactionOutcome = "pending"
)

// Transaction is an immutable audit record of an attempted or executed trade.
type Transaction struct {
	TransactionID string             `json:"transaction_id"`
	AccountID     string             `json:"account_id"`
	Kind          TransactionKind    `json:"kind"`
	Symbol        string             `json:"symbol"`
	Quantity      decimal.Decimal    `json:"quantity"`
	Price         decimal.Decimal    `json:"price"`
	Timestamp     time.Time          `json:"timestamp"`
	Outcome       TransactionOutcome `json:"outcome"`
	Reason        string             `json:"reason,omitempty"`
	OrderID       string             `json:"order_id,omitempty"`
}
