// Package quote implements the engine's QuoteSource against a
// Yahoo-chart-compatible HTTP API.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/efreitasn/papertrader/internal/domain"
	"github.com/efreitasn/papertrader/internal/engine"
)

// Compile-time check that Client implements engine.QuoteSource.
var _ engine.QuoteSource = (*Client)(nil)

// ClientConfig holds configuration for the chart client.
type ClientConfig struct {
	// BaseURL is the chart API base URL.
	// Defaults to https://query1.finance.yahoo.com
	BaseURL string

	// Timeout is the maximum time to wait for a single HTTP request.
	Timeout time.Duration

	// RateLimitPerMin is the rate limit in requests per minute.
	RateLimitPerMin int

	// Timeframes maps each timeframe to its upstream range and interval.
	// Defaults to domain.DefaultTimeframes.
	Timeframes map[domain.Timeframe]domain.TimeframeSpec

	// Logger is the structured logger for the client.
	Logger *slog.Logger

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// ClientConfigDefaults returns a config with default values.
func ClientConfigDefaults() ClientConfig {
	return ClientConfig{
		BaseURL:         "https://query1.finance.yahoo.com",
		Timeout:         5 * time.Second,
		RateLimitPerMin: 120,
		Timeframes:      domain.DefaultTimeframes,
		Logger:          slog.Default(),
	}
}

// Client fetches quotes and chart points.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
}

// NewClient creates a chart API client.
func NewClient(config ClientConfig) *Client {
	applyDefaults(&config, ClientConfigDefaults())

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: config.Timeout,
		}
	}

	rps := float64(config.RateLimitPerMin) / 60.0
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     config.Logger.With("component", "quote-client"),
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func applyDefaults(config *ClientConfig, defaults ClientConfig) {
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimitPerMin == 0 {
		config.RateLimitPerMin = defaults.RateLimitPerMin
	}
	if config.Timeframes == nil {
		config.Timeframes = defaults.Timeframes
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
}

// chartResponse is the subset of the chart payload the client reads.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta *struct {
				Symbol             string   `json:"symbol"`
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				MarketState        string   `json:"marketState"`
				RegularMarketTime  int64    `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// Fetch returns the current price, market state and chart points for
// symbol over tf. A payload without chart metadata, or an upstream 404,
// yields domain.ErrSymbolNotFound; any other failure is an
// *domain.UpstreamError.
func (c *Client) Fetch(ctx context.Context, symbol string, tf domain.Timeframe) (domain.Quote, error) {
	spec, ok := c.config.Timeframes[tf]
	if !ok {
		return domain.Quote{}, &domain.ValidationError{Message: fmt.Sprintf("Unknown timeframe: %s", tf)}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Quote{}, &domain.UpstreamError{Symbol: symbol, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	params := url.Values{}
	params.Set("region", "US")
	params.Set("lang", "en-US")
	params.Set("includePrePost", "false")
	params.Set("interval", spec.Interval)
	params.Set("range", spec.Range)
	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.config.BaseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Quote{}, &domain.UpstreamError{Symbol: symbol, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Quote{}, &domain.UpstreamError{Symbol: symbol, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Quote{}, domain.ErrSymbolNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, &domain.UpstreamError{Symbol: symbol, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Quote{}, &domain.UpstreamError{Symbol: symbol, Err: fmt.Errorf("reading response body: %w", err)}
	}
	return parseChart(symbol, body)
}

func parseChart(symbol string, body []byte) (domain.Quote, error) {
	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.Quote{}, &domain.UpstreamError{Symbol: symbol, Err: fmt.Errorf("parsing response: %w", err)}
	}
	if len(payload.Chart.Result) == 0 || payload.Chart.Result[0].Meta == nil {
		return domain.Quote{}, domain.ErrSymbolNotFound
	}
	result := payload.Chart.Result[0]
	meta := result.Meta
	if meta.RegularMarketPrice == nil {
		return domain.Quote{}, &domain.UpstreamError{Symbol: symbol, Err: errors.New("chart payload has no market price")}
	}
	if *meta.RegularMarketPrice <= 0 {
		return domain.Quote{}, &domain.UpstreamError{
			Symbol: symbol,
			Err:    fmt.Errorf("non-positive market price %v", *meta.RegularMarketPrice),
		}
	}

	q := domain.Quote{
		Symbol:      strings.ToUpper(symbol),
		Price:       decimal.NewFromFloat(*meta.RegularMarketPrice),
		MarketState: meta.MarketState,
		ObservedAt:  time.Now().UTC(),
	}
	if meta.RegularMarketTime > 0 {
		q.ObservedAt = time.Unix(meta.RegularMarketTime, 0).UTC()
	}

	// Closes are aligned with timestamps; null closes (halts, gaps) are
	// dropped.
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i, ts := range result.Timestamp {
			if i >= len(closes) || closes[i] == nil {
				continue
			}
			q.Points = append(q.Points, domain.PricePoint{
				Timestamp: time.Unix(ts, 0).UTC(),
				Close:     decimal.NewFromFloat(*closes[i]),
			})
		}
	}
	return q, nil
}
