package observability

import (
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bonding"

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	settlementOnce     sync.Once
	settlementRegistry *SettlementMetrics
)

// ModuleMetrics returns the lazily-initialised registry recording query API
// activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total API requests segmented by route and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Total API errors segmented by route and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. The status code should be the
// HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit".
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// SettlementMetrics tracks executed engine calls and the curve they move.
type SettlementMetrics struct {
	calls    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	minted   prometheus.Counter
	burned   prometheus.Counter
	tax      prometheus.Gauge
	reserve  prometheus.Gauge
	supply   prometheus.Gauge
	failures *prometheus.CounterVec
}

// Settlements returns the singleton settlement metrics registry.
func Settlements() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementRegistry = &SettlementMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "calls_total",
				Help:      "Engine calls segmented by action and outcome.",
			}, []string{"action", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "duration_seconds",
				Help:      "Latency distribution for engine calls including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
			minted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "minted_total",
				Help:      "Supply units minted by buys.",
			}),
			burned: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "burned_total",
				Help:      "Supply units burned by sells.",
			}),
			tax: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "curve",
				Name:      "tax_collected",
				Help:      "Lifetime tax recorded on the curve, in reserve units.",
			}),
			reserve: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "curve",
				Name:      "reserve",
				Help:      "Reserve held by the curve after the last settlement.",
			}),
			supply: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "curve",
				Name:      "supply",
				Help:      "Supply issued by the curve after the last settlement.",
			}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "failures_total",
				Help:      "Rejected engine calls segmented by action and error category.",
			}, []string{"action", "category"}),
		}
		prometheus.MustRegister(
			settlementRegistry.calls,
			settlementRegistry.latency,
			settlementRegistry.minted,
			settlementRegistry.burned,
			settlementRegistry.tax,
			settlementRegistry.reserve,
			settlementRegistry.supply,
			settlementRegistry.failures,
		)
	})
	return settlementRegistry
}

// Observe records a completed call. A non-empty category marks a failure.
func (m *SettlementMetrics) Observe(action, category string, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if category != "" {
		outcome = "error"
		m.failures.WithLabelValues(action, category).Inc()
	}
	m.calls.WithLabelValues(action, outcome).Inc()
	m.latency.WithLabelValues(action).Observe(d.Seconds())
}

// RecordMint adds minted supply units.
func (m *SettlementMetrics) RecordMint(amount *big.Int) {
	if m == nil {
		return
	}
	m.minted.Add(bigToFloat(amount))
}

// RecordBurn adds burned supply units.
func (m *SettlementMetrics) RecordBurn(amount *big.Int) {
	if m == nil {
		return
	}
	m.burned.Add(bigToFloat(amount))
}

// SetCurve publishes the curve state after a committed settlement.
func (m *SettlementMetrics) SetCurve(reserve, supply, tax *big.Int) {
	if m == nil {
		return
	}
	m.reserve.Set(bigToFloat(reserve))
	m.supply.Set(bigToFloat(supply))
	m.tax.Set(bigToFloat(tax))
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(value).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
