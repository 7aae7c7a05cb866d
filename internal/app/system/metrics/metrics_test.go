package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/weblivery/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWorkflow_NilIsNoop(t *testing.T) {
	var w *metrics.Workflow
	w.Submitted()
	w.Transition("accept", metrics.OutcomeOK)
	w.Compensation("released")
	w.Reconciled("rolled_back")
}

func TestWorkflow_CountsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := metrics.NewWorkflow(reg)

	w.Transition("accept", metrics.OutcomeOK)
	w.Transition("accept", metrics.OutcomeOK)
	w.Transition("decline", metrics.OutcomeNotFound)

	want := `
# HELP weblivery_request_transitions_total Accept/decline attempts by outcome.
# TYPE weblivery_request_transitions_total counter
weblivery_request_transitions_total{outcome="not_found",transition="decline"} 1
weblivery_request_transitions_total{outcome="ok",transition="accept"} 2
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "weblivery_request_transitions_total"); err != nil {
		t.Error(err)
	}
}

func TestHTTP_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTP(reg)

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/dashboard/{projectID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/abc", nil))

	want := `
# HELP weblivery_http_requests_total HTTP requests by route and status.
# TYPE weblivery_http_requests_total counter
weblivery_http_requests_total{method="GET",route="/dashboard/{projectID}",status="204"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(want), "weblivery_http_requests_total"); err != nil {
		t.Error(err)
	}
}
