package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efreitasn/papertrader/internal/domain"
)

// RedisQuoteCacheConfig holds Redis quote cache configuration.
type RedisQuoteCacheConfig struct {
	// Addr is the Redis server address (e.g., "localhost:6379").
	Addr     string
	Password string
	DB       int
	// TTL is how long a quote stays cached after its last refresh.
	TTL time.Duration
	// KeyPrefix is prepended to all cache keys.
	KeyPrefix string
}

// RedisQuoteCache shares last known quotes through Redis so they survive
// restarts. Keys have the form prefix:quote:SYMBOL.
type RedisQuoteCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// NewRedisQuoteCache creates a cache connected to cfg.Addr.
func NewRedisQuoteCache(cfg RedisQuoteCacheConfig) (*RedisQuoteCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "papertrader"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisQuoteCache{
		client:    client,
		ttl:       cfg.TTL,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Ping checks connectivity.
func (c *RedisQuoteCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *RedisQuoteCache) Close() error {
	return c.client.Close()
}

func (c *RedisQuoteCache) key(symbol string) string {
	return fmt.Sprintf("%s:quote:%s", c.keyPrefix, strings.ToUpper(strings.TrimSpace(symbol)))
}

// Put stores q under its symbol. Chart points are not cached.
func (c *RedisQuoteCache) Put(ctx context.Context, q domain.Quote) error {
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	if q.Symbol == "" {
		return nil
	}
	q.Points = nil

	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote %s: %w", q.Symbol, err)
	}
	if err := c.client.Set(ctx, c.key(q.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache quote %s: %w", q.Symbol, err)
	}
	return nil
}

// Get returns the cached quote for symbol.
func (c *RedisQuoteCache) Get(ctx context.Context, symbol string) (domain.Quote, bool, error) {
	data, err := c.client.Get(ctx, c.key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Quote{}, false, nil
	}
	if err != nil {
		return domain.Quote{}, false, fmt.Errorf("read cached quote %s: %w", symbol, err)
	}

	var q domain.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		return domain.Quote{}, false, fmt.Errorf("decode cached quote %s: %w", symbol, err)
	}
	return q, true, nil
}
