// Package metrics exposes Prometheus instrumentation for meeting operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	transitions   *prometheus.CounterVec
	entries       *prometheus.CounterVec
	verifications *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
	gatherer      prometheus.Gatherer
}

// New registers the collectors on reg. Passing prometheus.NewRegistry()
// keeps tests isolated from the global registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "savingsgroup",
			Name:      "meeting_transitions_total",
			Help:      "Meeting lifecycle transitions by target status and outcome.",
		}, []string{"to", "outcome"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "savingsgroup",
			Name:      "ledger_entries_total",
			Help:      "Ledger entries appended by kind and source.",
		}, []string{"kind", "source"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "savingsgroup",
			Name:      "remote_verifications_total",
			Help:      "Remote payment resolutions by outcome.",
		}, []string{"outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "savingsgroup",
			Name:      "request_duration_seconds",
			Help:      "Request latency by procedure or route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
		gatherer: reg,
	}
	reg.MustRegister(m.transitions, m.entries, m.verifications, m.rpcDuration)
	return m
}

// Transition counts a lifecycle transition attempt.
func (m *Metrics) Transition(to string, err error) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to, outcome(err)).Inc()
}

// EntryAppended counts a successful ledger append.
func (m *Metrics) EntryAppended(kind, source string) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(kind, source).Inc()
}

// Verification counts a remote payment resolution attempt.
// result is the resolved status on success.
func (m *Metrics) Verification(result string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		result = "error"
	}
	m.verifications.WithLabelValues(result).Inc()
}

// ObserveRequest records the latency of one request.
func (m *Metrics) ObserveRequest(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
