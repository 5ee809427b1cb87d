package store

import (
	"context"
	"strings"
	"sync"

	"github.com/efreitasn/papertrader/internal/domain"
)

// MemoryQuoteCache keeps the last known quote per symbol in process.
type MemoryQuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

// NewMemoryQuoteCache creates an empty cache.
func NewMemoryQuoteCache() *MemoryQuoteCache {
	return &MemoryQuoteCache{
		quotes: make(map[string]domain.Quote),
	}
}

// Put records q as the latest quote for its symbol. An older observation
// never replaces a newer one.
func (c *MemoryQuoteCache) Put(_ context.Context, q domain.Quote) error {
	key := strings.ToUpper(strings.TrimSpace(q.Symbol))
	if key == "" {
		return nil
	}
	q.Symbol = key
	q.Points = nil

	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.quotes[key]; ok && prev.ObservedAt.After(q.ObservedAt) {
		return nil
	}
	c.quotes[key] = q
	return nil
}

// Get returns the latest quote for symbol.
func (c *MemoryQuoteCache) Get(_ context.Context, symbol string) (domain.Quote, bool, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.quotes[key]
	return q, ok, nil
}

// Size returns the number of cached symbols.
func (c *MemoryQuoteCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}
