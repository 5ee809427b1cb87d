package domain

import "github.com/shopspring/decimal"

// PriceLookup returns the last known price for a symbol.
type PriceLookup func(symbol string) (decimal.Decimal, bool)

// Valuation is an account's net worth at the last known prices.
type Valuation struct {
	AccountID     string
	DisplayName   string
	Cash          decimal.Decimal
	HoldingsValue decimal.Decimal
	NetWorth      decimal.Decimal
	// MissingPrices lists held symbols without a known price; they
	// contributed zero to NetWorth.
	MissingPrices []string
}

// Value computes cash + Σ(quantity × price). It never fails: a symbol with
// no known price is valued at zero and reported in MissingPrices.
func Value(a *Account, prices PriceLookup) Valuation {
	v := Valuation{
		AccountID:     a.AccountID,
		DisplayName:   a.DisplayName,
		Cash:          a.Cash,
		HoldingsValue: decimal.Zero,
	}
	for _, symbol := range a.Symbols() {
		price, ok := prices(symbol)
		if !ok {
			v.MissingPrices = append(v.MissingPrices, symbol)
			continue
		}
		v.HoldingsValue = v.HoldingsValue.Add(a.Holdings[symbol].Mul(price))
	}
	v.NetWorth = v.Cash.Add(v.HoldingsValue)
	return v
}
