package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Trades           *prometheus.CounterVec
	LimitSettlements *prometheus.CounterVec
	QuoteFetchErrors prometheus.Counter
	IntegrityDrift   prometheus.Counter
	FingerprintStale prometheus.Counter
	PendingOrders    prometheus.Gauge
	LoopDuration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrader_trades_total",
				Help: "Total trade attempts by side and outcome.",
			},
			[]string{"side", "outcome"},
		),
		LimitSettlements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papertrader_limit_orders_resolved_total",
				Help: "Total limit orders removed from the pending set, by outcome.",
			},
			[]string{"outcome"},
		),
		QuoteFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrader_quote_fetch_errors_total",
			Help: "Total failed quote fetches.",
		}),
		IntegrityDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrader_integrity_drift_total",
			Help: "Total accounts whose stored fingerprint did not match a recomputation.",
		}),
		FingerprintStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrader_integrity_mismatch_total",
			Help: "Total trade requests rejected for a stale fingerprint.",
		}),
		PendingOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "papertrader_pending_limit_orders",
			Help: "Number of pending limit orders.",
		}),
		LoopDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "papertrader_loop_duration_seconds",
				Help:    "Duration of background loop passes in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"loop"},
		),
	}

	registry.MustRegister(m.Trades, m.LimitSettlements, m.QuoteFetchErrors,
		m.IntegrityDrift, m.FingerprintStale, m.PendingOrders, m.LoopDuration)
	return m
}

func (m *Metrics) ObserveTrade(side, outcome string) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(side, outcome).Inc()
}

func (m *Metrics) ObserveLimitOutcome(outcome string) {
	if m == nil {
		return
	}
	m.LimitSettlements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveQuoteError() {
	if m == nil {
		return
	}
	m.QuoteFetchErrors.Inc()
}

func (m *Metrics) ObserveDrift() {
	if m == nil {
		return
	}
	m.IntegrityDrift.Inc()
}

func (m *Metrics) ObserveStaleFingerprint() {
	if m == nil {
		return
	}
	m.FingerprintStale.Inc()
}

func (m *Metrics) SetPendingOrders(n int) {
	if m == nil {
		return
	}
	m.PendingOrders.Set(float64(n))
}

func (m *Metrics) ObserveLoop(loop string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LoopDuration.WithLabelValues(loop).Observe(duration.Seconds())
}
