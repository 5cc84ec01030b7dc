package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
	m.IncExtraction("shopee", "ok")
	m.ObserveFetch("http", time.Second)
	m.IncRefresh("updated")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestCounters(t *testing.T) {
	m := New()
	m.IncExtraction("lazada", "ok")
	m.IncExtraction("lazada", "ok")
	m.IncExtraction("generic", "fetch_error")
	m.ObserveHTTP("GET", "GET /health", 503, time.Millisecond)

	if got := testutil.ToFloat64(m.ExtractionsTotal.WithLabelValues("lazada", "ok")); got != 2 {
		t.Errorf("lazada ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /health", "5xx")); got != 1 {
		t.Errorf("5xx requests = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "shopple_extractions_total") {
		t.Error("expected extraction counter in exposition output")
	}
}
