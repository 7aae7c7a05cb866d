// Package metrics exposes Prometheus instruments for the request lifecycle
// and the HTTP layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transition outcomes recorded by Workflow.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeForbidden = "forbidden"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Workflow counts lifecycle transitions. A nil *Workflow is a no-op so the
// engine can run without metrics in tests.
type Workflow struct {
	submitted     prometheus.Counter
	transitions   *prometheus.CounterVec
	compensations *prometheus.CounterVec
	reconciled    *prometheus.CounterVec
}

// NewWorkflow creates the lifecycle instruments and registers them on reg.
func NewWorkflow(reg prometheus.Registerer) *Workflow {
	w := &Workflow{
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weblivery",
			Name:      "requests_submitted_total",
			Help:      "Service requests accepted through the public form.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weblivery",
			Name:      "request_transitions_total",
			Help:      "Accept/decline attempts by outcome.",
		}, []string{"transition", "outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weblivery",
			Name:      "accept_compensations_total",
			Help:      "Claims released or left for the reconciler after a failed accept.",
		}, []string{"action"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weblivery",
			Name:      "claims_reconciled_total",
			Help:      "Stale claims resolved by the background reconciler.",
		}, []string{"action"}),
	}
	reg.MustRegister(w.submitted, w.transitions, w.compensations, w.reconciled)
	return w
}

func (w *Workflow) Submitted() {
	if w == nil {
		return
	}
	w.submitted.Inc()
}

func (w *Workflow) Transition(name, outcome string) {
	if w == nil {
		return
	}
	w.transitions.WithLabelValues(name, outcome).Inc()
}

func (w *Workflow) Compensation(action string) {
	if w == nil {
		return
	}
	w.compensations.WithLabelValues(action).Inc()
}

func (w *Workflow) Reconciled(action string) {
	if w == nil {
		return
	}
	w.reconciled.WithLabelValues(action).Inc()
}

// HTTP records request counts and latencies labelled by chi route pattern.
type HTTP struct {
	inFlight prometheus.Gauge
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP creates the HTTP instruments and registers them on reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	h := &HTTP{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weblivery",
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weblivery",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "weblivery",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(h.inFlight, h.total, h.duration)
	return h
}

// Instrument is chi middleware. The route label is the matched pattern
// (e.g. /dashboard/{projectID}) so ids do not explode cardinality.
func (h *HTTP) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.inFlight.Inc()
		defer h.inFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := strconv.Itoa(sw.code)
		h.duration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		h.total.WithLabelValues(r.Method, route, status).Inc()
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
