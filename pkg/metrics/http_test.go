package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsCountsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Get("/pets/{petID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/pets/one", "/pets/two"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", w.Code)
		}
	}

	count := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/pets/{petID}", "200"))
	if count != 2 {
		t.Fatalf("expected both requests under one route label, got %v", count)
	}
}

func TestHTTPMetricsNilRegisterer(t *testing.T) {
	m := NewHTTPMetrics(nil)

	handler := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("middleware must pass through when unregistered, got %d", w.Code)
	}
}
