// Package metrics exposes Prometheus counters for the storefront.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without instrumentation in tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fasogadget"

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
	LoginError   = "error"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ordersSubmitted prometheus.Counter
	ordersSpooled   prometheus.Counter
	ordersReplayed  prometheus.Counter
	logins          *prometheus.CounterVec
	uploads         prometheus.Counter
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_submitted_total",
			Help:      "Orders accepted from the storefront.",
		}),
		ordersSpooled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_spooled_total",
			Help:      "Orders written to the local spool because the store rejected them.",
		}),
		ordersReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_replayed_total",
			Help:      "Spooled orders later written to the store.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_logins_total",
			Help:      "Back-office login attempts by outcome.",
		}, []string{"outcome"}),
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Product images stored.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by status code and method.",
		}, []string{"code", "method"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	m.registry.MustRegister(
		m.ordersSubmitted, m.ordersSpooled, m.ordersReplayed,
		m.logins, m.uploads, m.requests, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// OrderSubmitted counts an accepted order.
func (m *Metrics) OrderSubmitted() {
	if m != nil {
		m.ordersSubmitted.Inc()
	}
}

// OrderSpooled counts an order kept in the spool.
func (m *Metrics) OrderSpooled() {
	if m != nil {
		m.ordersSpooled.Inc()
	}
}

// OrdersReplayed counts n orders moved from the spool to the store.
func (m *Metrics) OrdersReplayed(n int) {
	if m != nil && n > 0 {
		m.ordersReplayed.Add(float64(n))
	}
}

// Login counts a login attempt.
func (m *Metrics) Login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

// UploadStored counts a stored product image.
func (m *Metrics) UploadStored() {
	if m != nil {
		m.uploads.Inc()
	}
}

// Instrument records the status and latency of every request. Methods
// outside the standard set are counted as "unknown".
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return promhttp.InstrumentHandlerDuration(m.duration,
		promhttp.InstrumentHandlerCounter(m.requests, next))
}
