package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zeebo/blake3"
)

// MaxDisplayNameLength is the longest display name accepted, in runes.
const MaxDisplayNameLength = 32

// ParseDisplayName turns an optional caller-supplied name into a trimmed
// name. It reports false when the name is absent: nil, blank, or one of the
// literal placeholders "null" / "undefined" that older clients send.
func ParseDisplayName(raw *string) (string, bool) {
	if raw == nil {
		return "", false
	}
	name := strings.TrimSpace(*raw)
	if name == "" {
		return "", false
	}
	switch strings.ToLower(name) {
	case "null", "undefined":
		return "", false
	}
	return name, true
}

// NormalizeName returns the registry key for a display name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateDisplayName checks the length limit of an already parsed name.
func ValidateDisplayName(name string) error {
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return &ValidationError{
			Message: fmt.Sprintf("display_name must be at most %d characters", MaxDisplayNameLength),
		}
	}
	return nil
}

// DefaultDisplayName derives a stable display name from the account ID.
// attempt > 0 appends a suffix so callers can resolve collisions.
func DefaultDisplayName(accountID string, attempt int) string {
	sum := blake3.Sum256([]byte(accountID))
	name := fmt.Sprintf("Trader-%x", sum[:3])
	if attempt > 0 {
		name = fmt.Sprintf("%s-%d", name, attempt)
	}
	return name
}
