// Package metrics exposes Prometheus collectors for order placement and
// streaming sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "hyperliquid"

// ============ Orders ============

// OrdersTotal counts placements by outcome: filled, resting, rejected, error.
var OrdersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "placed_total",
		Help:      "Total number of order placements by outcome",
	},
	[]string{"outcome"},
)

// RiskRejections counts local policy rejections by the check that failed.
var RiskRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "risk_rejections_total",
		Help:      "Total number of orders rejected by the local risk policy",
	},
	[]string{"check"},
)

// OrderLatency is the wall time of one placement, validation to normalized result.
var OrderLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "latency_ms",
		Help:      "Order placement latency in milliseconds",
		Buckets:   []float64{1, 10, 50, 100, 200, 300, 500, 1000, 2000, 5000},
	},
	[]string{"kind"},
)

// ============ Info ============

// InfoRequests counts /info calls by result: ok or error. These are the
// series a long-running serve process fills.
var InfoRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "info",
		Name:      "requests_total",
		Help:      "Total number of info endpoint requests by result",
	},
	[]string{"result"},
)

var InfoLatency = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "info",
		Name:      "latency_ms",
		Help:      "Info request latency in milliseconds",
		Buckets:   []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	},
)

// ============ Streaming ============

var StreamFrames = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "frames_total",
		Help:      "Total number of websocket frames received by channel",
	},
	[]string{"channel"},
)

var StreamTrades = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "trades_total",
		Help:      "Total number of trades dispatched by symbol",
	},
	[]string{"symbol"},
)

// StreamSessions counts finished sessions by exit reason.
var StreamSessions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "sessions_total",
		Help:      "Total number of finished stream sessions by exit reason",
	},
	[]string{"exit"},
)

// RecordOrder records one placement outcome and its latency.
func RecordOrder(kind, outcome string, started time.Time) {
	OrdersTotal.WithLabelValues(outcome).Inc()
	OrderLatency.WithLabelValues(kind).Observe(float64(time.Since(started).Microseconds()) / 1000)
}

func RecordInfoRequest(err error, started time.Time) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	InfoRequests.WithLabelValues(result).Inc()
	InfoLatency.Observe(float64(time.Since(started).Microseconds()) / 1000)
}

func RecordRiskRejection(check string) {
	RiskRejections.WithLabelValues(check).Inc()
}

func RecordFrame(channel string) {
	StreamFrames.WithLabelValues(channel).Inc()
}

func RecordTrades(symbol string, n int) {
	if n > 0 {
		StreamTrades.WithLabelValues(symbol).Add(float64(n))
	}
}

func RecordSession(exit string) {
	StreamSessions.WithLabelValues(exit).Inc()
}
