package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe is the closed set of chart windows a quote can be requested for.
type Timeframe string

const (
	TimeframeLive Timeframe = "live"
	Timeframe1M   Timeframe = "1M"
	Timeframe3M   Timeframe = "3M"
	Timeframe6M   Timeframe = "6M"
	Timeframe1Y   Timeframe = "1Y"
	Timeframe2Y   Timeframe = "2Y"
	Timeframe5Y   Timeframe = "5Y"
	TimeframeAll  Timeframe = "ALL"
)

// TimeframeSpec is the upstream chart granularity for a timeframe.
type TimeframeSpec struct {
	Range    string
	Interval string
}

// DefaultTimeframes maps every timeframe to its upstream range and interval.
var DefaultTimeframes = map[Timeframe]TimeframeSpec{
	TimeframeLive: {Range: "1d", Interval: "1d"},
	Timeframe1M:   {Range: "1mo", Interval: "1d"},
	Timeframe3M:   {Range: "3mo", Interval: "1d"},
	Timeframe6M:   {Range: "6mo", Interval: "1d"},
	Timeframe1Y:   {Range: "1y", Interval: "1d"},
	Timeframe2Y:   {Range: "2y", Interval: "1d"},
	Timeframe5Y:   {Range: "5y", Interval: "1d"},
	TimeframeAll:  {Range: "max", Interval: "1d"},
}

// ParseTimeframe validates a timeframe label. An empty label means ALL.
func ParseTimeframe(s string) (Timeframe, error) {
	if s == "" {
		return TimeframeAll, nil
	}
	tf := Timeframe(s)
	if _, ok := DefaultTimeframes[tf]; !ok {
		return "", &ValidationError{
			Message: fmt.Sprintf("Unknown timeframe: %s. Must be one of: live, 1M, 3M, 6M, 1Y, 2Y, 5Y, ALL", s),
		}
	}
	return tf, nil
}

// PricePoint is a single chart sample.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Close     decimal.Decimal `json:"close"`
}

// Quote is the latest observed market price for a symbol.
type Quote struct {
	Symbol      string          `json:"symbol"`
	Price       decimal.Decimal `json:"price"`
	MarketState string          `json:"market_state,omitempty"`
	ObservedAt  time.Time       `json:"observed_at"`
	Points      []PricePoint    `json:"points,omitempty"`
}
