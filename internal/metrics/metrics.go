// Package metrics holds the Prometheus collectors for workflow steps and
// the web server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Step outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
	OutcomeFallback = "fallback"
	OutcomeCanceled = "canceled"
)

// Metrics is a set of collectors on its own registry, so tests and
// multiple servers in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	StepsTotal    *prometheus.CounterVec
	StepDuration  *prometheus.HistogramVec
	Fallbacks     prometheus.Counter
	Publishes     prometheus.Counter
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		StepsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docugithub_steps_total",
				Help: "Workflow steps run, by step and outcome",
			},
			[]string{"step", "outcome"},
		),
		StepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docugithub_step_duration_seconds",
				Help:    "Workflow step duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"step"},
		),
		Fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "docugithub_generate_fallbacks_total",
			Help: "Generate steps that ended with the placeholder document",
		}),
		Publishes: f.NewCounter(prometheus.CounterOpts{
			Name: "docugithub_publishes_total",
			Help: "Documents pushed to their repository",
		}),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docugithub_http_requests_total",
				Help: "Web requests, by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDurations: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docugithub_http_request_duration_seconds",
				Help:    "Web request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveStep records one step run. A nil receiver records nothing.
func (m *Metrics) ObserveStep(step, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(step, outcome).Inc()
	m.StepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// ObserveHTTP records one web request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveFallback counts a generate step that ended on the placeholder.
func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.Fallbacks.Inc()
}

// ObservePublish counts a successful push.
func (m *Metrics) ObservePublish() {
	if m == nil {
		return
	}
	m.Publishes.Inc()
}
