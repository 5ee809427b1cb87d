package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestValue(t *testing.T) {
	a := NewAccount("acct-1", "alice", time.Now())
	a.Cash = d("1000")
	a.Credit("AAPL", d("10"))
	a.Credit("TSLA", d("2"))
	a.Credit("GONE", d("5"))

	prices := map[string]decimal.Decimal{
		"AAPL": d("150"),
		"TSLA": d("200.5"),
	}
	v := Value(a, func(symbol string) (decimal.Decimal, bool) {
		p, ok := prices[symbol]
		return p, ok
	})

	if !v.HoldingsValue.Equal(d("1901")) {
		t.Errorf("HoldingsValue = %s, want 1901", v.HoldingsValue)
	}
	if !v.NetWorth.Equal(d("2901")) {
		t.Errorf("NetWorth = %s, want 2901", v.NetWorth)
	}
	if len(v.MissingPrices) != 1 || v.MissingPrices[0] != "GONE" {
		t.Errorf("MissingPrices = %v, want [GONE]", v.MissingPrices)
	}
}

func TestValue_CashOnly(t *testing.T) {
	a := NewAccount("acct-1", "alice", time.Now())
	v := Value(a, func(string) (decimal.Decimal, bool) { return decimal.Zero, false })

	if !v.NetWorth.Equal(DefaultCash) {
		t.Errorf("NetWorth = %s, want %s", v.NetWorth, DefaultCash)
	}
	if len(v.MissingPrices) != 0 {
		t.Errorf("MissingPrices = %v, want none", v.MissingPrices)
	}
}
