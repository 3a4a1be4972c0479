package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
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

func TestMetricsRecordsDecisions(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordDecision("Allow", "redirect")
	metrics.RecordDecision("RedirectAccessDenied", "inline")
	metrics.RecordDecision("RedirectAccessDenied", "inline")

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_access_decisions_total{mode="redirect",outcome="Allow"} 1`) {
		t.Fatalf("expected allow decision, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_access_decisions_total{mode="inline",outcome="RedirectAccessDenied"} 2`) {
		t.Fatalf("expected denied decisions, got: %s", body)
	}
}

func TestMetricsRecordsPrincipalActivity(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordPrincipalLoad("missing")
	metrics.RecordInvalidation("all")

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_principal_loads_total{result="missing"} 1`) {
		t.Fatalf("expected principal load, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_principal_invalidations_total{scope="all"} 1`) {
		t.Fatalf("expected invalidation, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.RecordDecision("Allow", "redirect")
	metrics.RecordPrincipalLoad("ok")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/employees/{id}")

	req := httptest.NewRequest(http.MethodGet, "/employees/7", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_http_requests_total{code="303",route="/employees/{id}"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_http_request_duration_seconds_bucket{route="/employees/{id}"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}
