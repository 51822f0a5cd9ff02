// Package metrics exposes Prometheus counters for side effects and claim
// transitions.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Side-effect outcomes.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
	ResultSkip   = "skipped"
)

// Metrics holds the server's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	notifications    *prometheus.CounterVec
	emails           *prometheus.CounterVec
	claimTransitions *prometheus.CounterVec
	matches          prometheus.Counter
	httpRequests     *prometheus.CounterVec
}

// New creates a registry with the lostfound collectors plus Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_notifications_total",
			Help: "In-app notifications dispatched, by result.",
		}, []string{"result"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_emails_total",
			Help: "Notification emails attempted, by result.",
		}, []string{"result"}),
		claimTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_claim_transitions_total",
			Help: "Claim state transitions, by target state.",
		}, []string{"to"}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lostfound_matches_total",
			Help: "Lost/found title matches found.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lostfound_http_requests_total",
			Help: "HTTP requests served, by method and status class.",
		}, []string{"method", "class"}),
	}

	m.registry.MustRegister(
		m.notifications,
		m.emails,
		m.claimTransitions,
		m.matches,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Notification(result string) {
	if m != nil {
		m.notifications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) Email(result string) {
	if m != nil {
		m.emails.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ClaimTransition(to string) {
	if m != nil {
		m.claimTransitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) Matches(n int) {
	if m != nil && n > 0 {
		m.matches.Add(float64(n))
	}
}

// HTTPRequest records one served request. status is bucketed into its class ("2xx").
func (m *Metrics) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	class := strconv.Itoa(status/100) + "xx"
	m.httpRequests.WithLabelValues(method, class).Inc()
}
