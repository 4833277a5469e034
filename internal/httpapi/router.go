// Package httpapi monta o router HTTP do gateway: pipeline de admissão na frente
// das rotas de análise.
package httpapi

import (
	"net/http"

	"analysis-gateway/internal/analysis"
	"analysis-gateway/internal/apierror"
	"analysis-gateway/middleware/accesslog"
	"analysis-gateway/middleware/metrics"
	"analysis-gateway/middleware/ratelimit"
	"analysis-gateway/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const welcomeMessage = "Welcome to CSI GroqBot API"

type Deps struct {
	Logger   *zap.Logger
	Analysis *analysis.Service

	// RateLimit é aplicado só nas rotas /analyze. Store nil desliga o limite.
	RateLimit   ratelimit.Options
	Concurrency ratelimit.ConcurrencyOptions

	// Metrics e Gatherer são opcionais; sem Gatherer a rota /metrics não existe.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// Stats expõe GET /stats quando as estatísticas ficam em memória.
	Stats StatsSnapshotter

	CORSAllowedOrigins []string
}

type StatsSnapshotter interface {
	Snapshot() infra.StatsSnapshot
}

// NewRouter encadeia: request id -> access log -> recover -> métricas -> CORS
// -> rate limit -> concorrência -> handler.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.RateLimit.Logger == nil {
		d.RateLimit.Logger = d.Logger
	}
	if d.Concurrency.Logger == nil {
		d.Concurrency.Logger = d.Logger
	}
	origins := d.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handlers{svc: d.Analysis}

	r := chi.NewRouter()
	r.Use(accesslog.RequestID())
	r.Use(accesslog.Middleware(d.Logger))
	r.Use(apierror.Recoverer(d.Logger))
	r.Use(d.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Retry-After", accesslog.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.NotFound(apierror.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		return apierror.New(http.StatusNotFound, "Not Found")
	}).ServeHTTP)
	r.MethodNotAllowed(apierror.HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		return apierror.New(http.StatusMethodNotAllowed, "Method Not Allowed")
	}).ServeHTTP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		apierror.WriteJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		apierror.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	if d.Stats != nil {
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			apierror.WriteJSON(w, http.StatusOK, d.Stats.Snapshot())
		})
	}

	// admissão por rota: método errado recebe 405 sem gastar cota
	admission := []func(http.Handler) http.Handler{ratelimit.ConcurrencyMiddleware(d.Concurrency)}
	if d.RateLimit.Store != nil {
		admission = append([]func(http.Handler) http.Handler{ratelimit.Middleware(d.RateLimit)}, admission...)
	}

	r.Route("/analyze", func(r chi.Router) {
		ar := r.With(admission...)
		ar.Method(http.MethodPost, "/text", apierror.HandlerFunc(h.analyzeText))
		ar.Method(http.MethodPost, "/image", apierror.HandlerFunc(h.analyzeImage))
		ar.Method(http.MethodPost, "/audio", apierror.HandlerFunc(h.analyzeAudio))
	})

	return r
}
