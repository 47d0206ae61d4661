// Package metrics exposes HTTP request metrics and the Prometheus scrape endpoint.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/screwyprof/daodelegate/pkg/httpkit"
)

// Route is where the scrape endpoint is mounted
const Route = http.MethodGet + " /metrics"

// HTTP records request latency by route and status
type HTTP struct {
	requests *prometheus.HistogramVec
}

// NewHTTP creates request metrics and registers them with reg
func NewHTTP(reg prometheus.Registerer) *HTTP {
	m := &HTTP{
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "daodelegate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.requests)
	return m
}

// Middleware observes every request served by next
func (m *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := httpkit.NewStatusRecorder(w)
		next.ServeHTTP(rw, r)

		m.requests.
			WithLabelValues(r.Method, httpkit.Route(r), strconv.Itoa(rw.Status)).
			Observe(time.Since(start).Seconds())
	})
}

// Requests returns the request histogram, mainly for assertions
func (m *HTTP) Requests() *prometheus.HistogramVec {
	return m.requests
}

// Handler serves the registry in the Prometheus exposition format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewRegistry returns a registry with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
