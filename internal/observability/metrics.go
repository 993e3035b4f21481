package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blockybird",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blockybird",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	gateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blockybird",
			Subsystem: "gate",
			Name:      "transitions_total",
			Help:      "Onboarding gate state transitions.",
		},
		[]string{"from", "to"},
	)
	accountRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blockybird",
			Subsystem: "gate",
			Name:      "account_requests_total",
			Help:      "Account requests by outcome.",
		},
		[]string{"outcome"},
	)
	bridgeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blockybird",
			Subsystem: "bridge",
			Name:      "sessions",
			Help:      "Live browser bridge sessions.",
		},
	)
	bridgeCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blockybird",
			Subsystem: "bridge",
			Name:      "commands_total",
			Help:      "Commands queued for browser sessions.",
		},
		[]string{"kind"},
	)
)

// Account request outcomes.
const (
	RequestIssued   = "issued"
	RequestResolved = "resolved"
	RequestEmpty    = "empty"
	RequestFailed   = "failed"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			gateTransitions,
			accountRequests,
			bridgeSessions,
			bridgeCommands,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordGateTransition(from, to string) {
	RegisterMetrics()
	gateTransitions.WithLabelValues(from, to).Inc()
}

func RecordAccountRequest(outcome string) {
	RegisterMetrics()
	accountRequests.WithLabelValues(outcome).Inc()
}

func SetBridgeSessions(n int) {
	RegisterMetrics()
	bridgeSessions.Set(float64(n))
}

func RecordBridgeCommand(kind string) {
	RegisterMetrics()
	bridgeCommands.WithLabelValues(kind).Inc()
}
