// Package metrics expõe coletores Prometheus para o pipeline HTTP e para as
// decisões de admissão do rate limit.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"analysis-gateway/middleware/accesslog"
	"analysis-gateway/middleware/ratelimit/domain"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
	Buckets    []float64
}

type Metrics struct {
	Requests  *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	InFlight  prometheus.Gauge
	Admission *prometheus.CounterVec
}

func New(opts Options) (*Metrics, error) {
	ns := opts.Namespace
	if ns == "" {
		ns = "gateway"
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		// chamadas a colaboradores levam segundos
		buckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	}

	labels := []string{"method", "route", "status"}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests partitioned by method, route, and status code.",
	}, labels))
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Histogram of HTTP request latencies in seconds partitioned by method, route, and status code.",
		Buckets:   buckets,
	}, labels))
	if err != nil {
		return nil, err
	}

	inFlight, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "Current number of in-flight HTTP requests.",
	}))
	if err != nil {
		return nil, err
	}

	admission, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "admission_decisions_total",
		Help:      "Rate limit decisions partitioned by outcome (allowed, rejected).",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Requests:  requests,
		Duration:  duration,
		InFlight:  inFlight,
		Admission: admission,
	}, nil
}

// register reaproveita o coletor já registrado com o mesmo nome (ex.: testes que
// criam o router mais de uma vez no registry padrão).
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
		return c, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
	}
	return c, fmt.Errorf("register collector: %w", err)
}

// Middleware registra contagem, latência e requests em andamento.
// A rota é o padrão do chi ("/analyze/{kind}"), não o path bruto.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		rec := accesslog.NewRecorder(w)
		next.ServeHTTP(rec, r)

		route := UnmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		labels := prometheus.Labels{
			"method": methodLabel(r.Method),
			"route":  route,
			"status": strconv.Itoa(rec.Status()),
		}
		m.Requests.With(labels).Inc()
		m.Duration.With(labels).Observe(time.Since(start).Seconds())
	})
}

// UnmatchedRoute é o label de rota para requisições que o router não casou;
// o path bruto vem do cliente e não pode virar label.
const UnmatchedRoute = "unmatched"

func methodLabel(m string) string {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodOptions, http.MethodConnect, http.MethodTrace:
		return m
	}
	return "other"
}

// Record implementa domain.StatsStore contando as decisões do rate limit.
// A chave do cliente fica de fora dos labels para não explodir a cardinalidade.
func (m *Metrics) Record(_ context.Context, ev domain.StatsEvent) error {
	outcome := "rejected"
	if ev.Allowed {
		outcome = "allowed"
	}
	m.Admission.WithLabelValues(outcome).Inc()
	return nil
}

var _ domain.StatsStore = (*Metrics)(nil)
