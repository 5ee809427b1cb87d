package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RequirePositive returns a ValidationError naming field unless v > 0.
func RequirePositive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return &ValidationError{
			Message: fmt.Sprintf("%s must be greater than 0", field),
		}
	}
	return nil
}

// Cost returns quantity × price.
func Cost(quantity, price decimal.Decimal) decimal.Decimal {
	return quantity.Mul(price)
}
