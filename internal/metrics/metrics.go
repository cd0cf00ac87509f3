// Package metrics exposes Prometheus collectors for upstream traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "arrgate"

// Outcome labels for request and login counters.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	retries   *prometheus.CounterVec
	logins    *prometheus.CounterVec
	serviceUp *prometheus.GaugeVec
}

// New registers all collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Logical requests sent to upstream services, by final outcome.",
		}, []string{"service", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_retries_total",
			Help:      "Retries scheduled after transient upstream failures.",
		}, []string{"service"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_logins_total",
			Help:      "Form logins performed for session-authenticated services.",
		}, []string{"service", "outcome"}),
		serviceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_up",
			Help:      "Result of the last health probe per user and service (1 = healthy).",
		}, []string{"user", "service"}),
	}

	reg.MustRegister(
		m.requests,
		m.retries,
		m.logins,
		m.serviceUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// ObserveRequest counts one logical request.
func (m *Metrics) ObserveRequest(service string, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(service, outcome(err)).Inc()
}

// ObserveRetry counts one scheduled retry.
func (m *Metrics) ObserveRetry(service string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(service).Inc()
}

// ObserveLogin counts one session login attempt.
func (m *Metrics) ObserveLogin(service string, err error) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(service, outcome(err)).Inc()
}

// SetServiceUp records a health probe result.
func (m *Metrics) SetServiceUp(userID, service string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.serviceUp.WithLabelValues(userID, service).Set(v)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
