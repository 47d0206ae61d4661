package evm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call results used as metric label values
const (
	resultOK    = "ok"
	resultError = "error"
)

// Metrics records contract read counts and latency by method.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates ledger call metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "daodelegate",
			Subsystem: "ledger",
			Name:      "calls_total",
			Help:      "Contract reads issued against the JSON-RPC provider.",
		}, []string{"method", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "daodelegate",
			Subsystem: "ledger",
			Name:      "call_duration_seconds",
			Help:      "Latency of contract reads including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.calls, m.duration)
	return m
}

func (m *Metrics) observe(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultError
	}
	m.calls.WithLabelValues(method, result).Inc()
	m.duration.WithLabelValues(method).Observe(time.Since(started).Seconds())
}

// Calls returns the call counter, mainly for assertions
func (m *Metrics) Calls() *prometheus.CounterVec {
	return m.calls
}
