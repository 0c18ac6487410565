// Package metrics provides Prometheus collection for the session lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates the process-wide metrics registry with the standard
// runtime collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// NewSessionMetrics registers the session collector on the registry and
// exposes it behind the recording interface.
func NewSessionMetrics(reg *prometheus.Registry) SessionMetricsCollector {
	return NewCollector(reg)
}

// SessionMetricsCollector is the interface the use case and worker layers
// record session lifecycle events through.
type SessionMetricsCollector interface {
	RecordSessionCreated()
	RecordSessionEvicted(count int)
	RecordSessionRefreshed()
	RecordSessionRevoked(count int)
	RecordSessionRejected(reason string)
	RecordExpiredSwept(count int)
}

// Collector is the Prometheus-backed SessionMetricsCollector.
type Collector struct {
	sessionsCreated   prometheus.Counter
	sessionsEvicted   prometheus.Counter
	sessionsRefreshed prometheus.Counter
	sessionsRevoked   prometheus.Counter
	sessionsRejected  *prometheus.CounterVec
	expiredSwept      prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saaskit_sessions_created_total",
			Help: "Total number of sessions created.",
		}),
		sessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saaskit_sessions_evicted_total",
			Help: "Total number of sessions evicted by the per-user capacity cap.",
		}),
		sessionsRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saaskit_sessions_refreshed_total",
			Help: "Total number of sliding-window session refreshes.",
		}),
		sessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saaskit_sessions_revoked_total",
			Help: "Total number of sessions revoked explicitly.",
		}),
		sessionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "saaskit_sessions_rejected_total",
			Help: "Total number of session validations that failed, by reason.",
		}, []string{"reason"}),
		expiredSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "saaskit_sessions_expired_swept_total",
			Help: "Total number of expired session rows removed by the sweeper.",
		}),
	}

	reg.MustRegister(
		c.sessionsCreated,
		c.sessionsEvicted,
		c.sessionsRefreshed,
		c.sessionsRevoked,
		c.sessionsRejected,
		c.expiredSwept,
	)

	return c
}

// RecordSessionCreated counts a successful session creation.
func (c *Collector) RecordSessionCreated() {
	c.sessionsCreated.Inc()
}

// RecordSessionEvicted counts sessions removed by capacity eviction.
func (c *Collector) RecordSessionEvicted(count int) {
	c.sessionsEvicted.Add(float64(count))
}

// RecordSessionRefreshed counts a sliding-window extension.
func (c *Collector) RecordSessionRefreshed() {
	c.sessionsRefreshed.Inc()
}

// RecordSessionRevoked counts explicitly revoked sessions.
func (c *Collector) RecordSessionRevoked(count int) {
	c.sessionsRevoked.Add(float64(count))
}

// RecordSessionRejected counts a failed validation with its reason.
func (c *Collector) RecordSessionRejected(reason string) {
	c.sessionsRejected.WithLabelValues(reason).Inc()
}

// RecordExpiredSwept counts rows removed by the expiry sweeper.
func (c *Collector) RecordExpiredSwept(count int) {
	c.expiredSwept.Add(float64(count))
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
