package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/v1/indexes/{index}/mapping", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("mapping"))
	})

	for _, idx := range []string{"a", "b"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/indexes/"+idx+"/mapping", http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	}

	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/v1/indexes/{index}/mapping", "200"))
	if got < 2 {
		t.Fatalf("expected both requests under one route label, got %f", got)
	}
	if b := testutil.ToFloat64(httpResponseBytes.WithLabelValues("/v1/indexes/{index}/mapping")); b < 14 {
		t.Fatalf("expected response bytes counted, got %f", b)
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/search", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.WriteHeader(http.StatusInternalServerError)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/search", http.NoBody))

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/search", "400")); got < 1 {
		t.Fatalf("expected first status to win, got %f", got)
	}
}

func TestMiddleware_UnknownRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", http.NoBody))

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unknown", "404")); got < 1 {
		t.Fatalf("expected unknown route label, got %f", got)
	}
}

func TestRegisterBackendMetrics_Idempotent(t *testing.T) {
	RegisterBackendMetrics()
	RegisterBackendMetrics()
	BackendRequestsTotal.WithLabelValues("embedded", "search", "ok").Inc()
	if got := testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("embedded", "search", "ok")); got < 1 {
		t.Fatalf("expected counter incremented, got %f", got)
	}
}
