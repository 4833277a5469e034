package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"analysis-gateway/middleware/ratelimit/domain"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := New(Options{Registerer: registry})
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Post("/analyze/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/analyze/text", nil))

	labels := prometheus.Labels{"method": http.MethodPost, "route": "/analyze/{kind}", "status": "429"}
	if got := testutil.ToFloat64(m.Requests.With(labels)); got != 1 {
		t.Fatalf("expected request counter 1, got %f", got)
	}
	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Fatalf("expected in-flight gauge to return to 0, got %f", got)
	}
	if samples := testutil.CollectAndCount(m.Duration); samples == 0 {
		t.Fatalf("expected histogram collector to have at least one sample")
	}
}

func TestMiddlewareBoundsUnmatchedPathsAndMethods(t *testing.T) {
	m, err := New(Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})

	for i := 0; i < 50; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/nope-%d", i), nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("BREW", "/healthz", nil))

	if got := testutil.CollectAndCount(m.Requests); got != 2 {
		t.Fatalf("expected 2 series, got %d", got)
	}
	labels := prometheus.Labels{"method": http.MethodGet, "route": UnmatchedRoute, "status": "404"}
	if got := testutil.ToFloat64(m.Requests.With(labels)); got != 50 {
		t.Fatalf("expected 50 unmatched requests, got %f", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues("other", UnmatchedRoute, "405")); got != 1 {
		t.Fatalf("expected unknown method under \"other\", got %f", got)
	}
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := New(Options{Registerer: registry})
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	second, err := New(Options{Registerer: registry})
	if err != nil {
		t.Fatalf("second New: %v", err)
	}
	if first.Requests != second.Requests {
		t.Fatalf("expected the same requests collector to be reused")
	}
}

func TestRecordCountsAdmissionOutcomes(t *testing.T) {
	m, err := New(Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	_ = m.Record(ctx, domain.StatsEvent{Allowed: true})
	_ = m.Record(ctx, domain.StatsEvent{Allowed: true})
	_ = m.Record(ctx, domain.StatsEvent{Allowed: false})

	if got := testutil.ToFloat64(m.Admission.WithLabelValues("allowed")); got != 2 {
		t.Fatalf("expected 2 allowed, got %f", got)
	}
	if got := testutil.ToFloat64(m.Admission.WithLabelValues("rejected")); got != 1 {
		t.Fatalf("expected 1 rejected, got %f", got)
	}
}

func TestMiddlewareNoopWhenNil(t *testing.T) {
	var m *Metrics
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
