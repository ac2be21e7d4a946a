// ABOUTME: Prometheus collectors for turns and provider attempts
// ABOUTME: Collectors register on a private registry so tests and servers stay isolated

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/2389/ideation-gateway/internal/ideation"
)

// Metrics holds the gateway's collectors.
type Metrics struct {
	registry *prometheus.Registry

	Attempts *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Turns    *prometheus.CounterVec
	Requests *prometheus.CounterVec
}

// New creates and registers the collectors. sessions, when non-nil, is
// sampled on every scrape for the live conversation gauge.
func New(sessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ideation_provider_attempts_total",
			Help: "Provider attempts by backend and outcome",
		}, []string{"provider", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ideation_provider_latency_seconds",
			Help:    "Latency of provider calls that reached the backend",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ideation_turns_total",
			Help: "Submitted turns by the backend that answered (none on total failure)",
		}, []string{"model_used"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ideation_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.Attempts, m.Latency, m.Turns, m.Requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if sessions != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "ideation_active_sessions",
			Help: "Live conversations held in memory",
		}, func() float64 { return float64(sessions()) }))
	}

	return m
}

// ObserveAttempt implements ideation.Observer.
func (m *Metrics) ObserveAttempt(a ideation.Attempt) {
	m.Attempts.WithLabelValues(string(a.Provider), string(a.Outcome)).Inc()
	if a.Outcome != ideation.OutcomeSkipped {
		m.Latency.WithLabelValues(string(a.Provider)).Observe(a.Duration.Seconds())
	}
}

// ObserveTurn counts a completed Submit.
func (m *Metrics) ObserveTurn(modelUsed string) {
	m.Turns.WithLabelValues(modelUsed).Inc()
}

// ObserveRequest counts an HTTP response.
func (m *Metrics) ObserveRequest(route, code string) {
	m.Requests.WithLabelValues(route, code).Inc()
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var _ ideation.Observer = (*Metrics)(nil)
