package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/odyssey-erp/mnledger/internal/jobs"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobSeries(t *testing.T) {
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	_ = jobs.Track("ledger:warmup").End(nil)
	jobs.SetUtilization("Line-1", 92.5)

	body := scrape(t, metrics)
	if !strings.Contains(body, `mnledger_jobs_total{job="ledger:warmup",status="success"} 1`) {
		t.Fatalf("expected job run to be counted, got: %s", body)
	}
	if !strings.Contains(body, `mnledger_cost_area_utilization_percent{cost_area="Line-1"} 92.5`) {
		t.Fatalf("expected utilization gauge, got: %s", body)
	}
}

func TestMetricsDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveSubmission("accepted")
	metrics.ObserveSubmission("budget_exceeded")
	metrics.ObserveSubmission("budget_exceeded")
	metrics.ObserveBill(350.5)

	body := scrape(t, metrics)
	if !strings.Contains(body, `mnledger_request_submissions_total{outcome="budget_exceeded"} 2`) {
		t.Fatalf("expected budget_exceeded count, got: %s", body)
	}
	if !strings.Contains(body, "mnledger_bills_generated_total 1") {
		t.Fatalf("expected bill count, got: %s", body)
	}
	if !strings.Contains(body, "mnledger_bill_amount_total 350.5") {
		t.Fatalf("expected bill amount, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveSubmission("accepted")
	metrics.ObserveBill(10)
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/requests/")

	req := httptest.NewRequest(http.MethodPost, "/requests/", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `mnledger_http_requests_total{code="422",route="/requests/"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `mnledger_http_request_duration_seconds_bucket{route="/requests/"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}
