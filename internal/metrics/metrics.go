// Package metrics holds the Prometheus collectors for page views and outbound
// API calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private registry plus the collectors the web client updates.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	apiDuration  *prometheus.HistogramVec
	pageRequests *prometheus.CounterVec
	pageDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "billapi_requests_total",
			Help: "Outbound bill API calls by operation and response code.",
		}, []string{"op", "code"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "billapi_request_duration_seconds",
			Help:    "Latency of outbound bill API calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		pageRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "web_requests_total",
			Help: "Inbound page requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		pageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "web_request_duration_seconds",
			Help:    "Latency of inbound page requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiDuration,
		m.pageRequests,
		m.pageDuration,
	)
	return m
}

// ObserveAPI records one outbound call. code is the HTTP status, or 0 when the
// request never got a response.
func (m *Metrics) ObserveAPI(op string, code int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.apiRequests.WithLabelValues(op, label).Inc()
	m.apiDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObservePage records one inbound request. route is the matched mux pattern.
func (m *Metrics) ObservePage(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.pageRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.pageDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
