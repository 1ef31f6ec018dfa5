// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth event labels.
const (
	EventLoginIssued        = "login_issued"
	EventAuthenticateOK     = "authenticate_ok"
	EventAuthenticateDenied = "authenticate_denied"
	EventCredentialRejected = "credential_rejected"
)

// Recorder is the interface used by middleware and services.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, d time.Duration)
	RecordAuthEvent(event string)
	RecordAuthzDenied(predicate string)
}

// Collector is the Prometheus backed Recorder.
type Collector struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	authEvents   *prometheus.CounterVec
	authzDenied  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_auth_events_total",
			Help: "Login and credential resolution outcomes.",
		}, []string{"event"}),
		authzDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_authz_denied_total",
			Help: "Requests rejected by an authorization predicate.",
		}, []string{"predicate"}),
	}

	reg.MustRegister(c.httpRequests, c.httpDuration, c.authEvents, c.authzDenied)
	return c
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) RecordAuthEvent(event string) {
	c.authEvents.WithLabelValues(event).Inc()
}

func (c *Collector) RecordAuthzDenied(predicate string) {
	c.authzDenied.WithLabelValues(predicate).Inc()
}

// Nop discards everything.  Tests and tools that do not serve /metrics use it.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordAuthEvent(string)                               {}
func (Nop) RecordAuthzDenied(string)                             {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
