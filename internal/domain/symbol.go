package domain

import (
	"regexp"
	"strings"
)

var symbolRegex = regexp.MustCompile(`^[A-Z0-9.\-^=]{1,15}$`)

// NormalizeSymbol upper-cases and trims a ticker symbol and validates its
// shape. Index (^GSPC), class (BRK.B) and currency (EURUSD=X) tickers are
// accepted.
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolRegex.MatchString(symbol) {
		return "", &ValidationError{
			Message: "symbol must be 1-15 characters of A-Z, 0-9, ., -, ^ or =",
		}
	}
	return symbol, nil
}
