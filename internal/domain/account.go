package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCash is the balance every new or reset account starts with.
var DefaultCash = decimal.NewFromInt(100000)

// HoldingEpsilon is the quantity below which a holding is treated as dust
// and removed from the account.
var HoldingEpsilon = decimal.NewFromFloat(1e-3)

// Account is a user's cash + holdings ledger entry.
type Account struct {
	AccountID   string                     `json:"account_id"`
	DisplayName string                     `json:"display_name"`
	Cash        decimal.Decimal            `json:"cash"`
	Holdings    map[string]decimal.Decimal `json:"holdings"` // symbol → quantity
	Fingerprint string                     `json:"fingerprint"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

// NewAccount returns an account with the default balance and no holdings.
// The fingerprint is already computed.
func NewAccount(id, displayName string, now time.Time) *Account {
	a := &Account{
		AccountID:   id,
		DisplayName: displayName,
		Cash:        DefaultCash,
		Holdings:    make(map[string]decimal.Decimal),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	a.Fingerprint = Fingerprint(a)
	return a
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	c := *a
	c.Holdings = make(map[string]decimal.Decimal, len(a.Holdings))
	for symbol, qty := range a.Holdings {
		c.Holdings[symbol] = qty
	}
	return &c
}

// Quantity returns the held quantity for symbol, or zero.
func (a *Account) Quantity(symbol string) decimal.Decimal {
	return a.Holdings[symbol]
}

// Symbols returns the held symbols in ascending order.
func (a *Account) Symbols() []string {
	symbols := make([]string, 0, len(a.Holdings))
	for symbol := range a.Holdings {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Credit adds qty of symbol to the holdings.
func (a *Account) Credit(symbol string, qty decimal.Decimal) {
	if a.Holdings == nil {
		a.Holdings = make(map[string]decimal.Decimal)
	}
	a.Holdings[symbol] = a.Holdings[symbol].Add(qty)
}

// Debit removes qty of symbol from the holdings. A remainder at or below
// HoldingEpsilon drops the entry entirely.
func (a *Account) Debit(symbol string, qty decimal.Decimal) {
	remaining := a.Holdings[symbol].Sub(qty)
	if remaining.LessThanOrEqual(HoldingEpsilon) {
		delete(a.Holdings, symbol)
		return
	}
	a.Holdings[symbol] = remaining
}

// ResetBalances restores the default cash and clears every holding.
func (a *Account) ResetBalances() {
	a.Cash = DefaultCash
	a.Holdings = make(map[string]decimal.Decimal)
}
