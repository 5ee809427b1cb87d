package domain

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint computes a deterministic digest over the account's cash and
// holdings. Holdings are hashed in symbol order, so map iteration order
// never affects the result. Display name and timestamps are not part of it.
func Fingerprint(a *Account) string {
	hasher := blake3.New()
	hasher.Write([]byte("cash="))
	hasher.Write([]byte(a.Cash.String()))
	for _, symbol := range a.Symbols() {
		hasher.Write([]byte{'\n'})
		hasher.Write([]byte(symbol))
		hasher.Write([]byte{'='})
		hasher.Write([]byte(a.Holdings[symbol].String()))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
