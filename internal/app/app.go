// Package app liga configuração, stores de admissão, colaboradores e router
// num servidor HTTP com ciclo de vida controlado por contexto.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"analysis-gateway/internal/analysis"
	"analysis-gateway/internal/collaborator"
	"analysis-gateway/internal/config"
	"analysis-gateway/internal/httpapi"
	"analysis-gateway/middleware/metrics"
	"analysis-gateway/middleware/ratelimit"
	"analysis-gateway/middleware/ratelimit/domain"
	"analysis-gateway/middleware/ratelimit/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg     *config.Config
	log     *zap.Logger
	handler http.Handler

	rdb      *redis.Client
	janitor  *infra.MemoryWindowStore
	listener net.Listener
}

func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{cfg: cfg, log: log}

	if cfg.UsesRedis() {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := a.rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = a.rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	store, err := a.windowStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	var m *metrics.Metrics
	if cfg.HTTP.MetricsEnabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err = metrics.New(metrics.Options{Registerer: reg})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var stats []domain.StatsStore
	if m != nil {
		stats = append(stats, m)
	}
	var memStats *infra.MemoryStatsStore
	if cfg.Stats.Enabled {
		switch cfg.StatsBackend() {
		case "redis":
			stats = append(stats, infra.NewRedisStatsStore(
				a.rdb,
				infra.WithStatsPrefix(cfg.Stats.Prefix),
				infra.WithStatsTTL(cfg.Stats.TTL),
				infra.WithStatsBucket(cfg.Stats.Bucket),
				infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
			))
		default:
			memStats = infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.Stats.TrackKeys))
			stats = append(stats, memStats)
		}
	}

	deps := httpapi.Deps{
		Logger:   log,
		Analysis: a.analysisService(),
		RateLimit: ratelimit.Options{
			Store:               store,
			Stats:               infra.TeeStats(stats...),
			Logger:              log,
			KeyHeader:           cfg.RateLimit.KeyHeader,
			TrustXForwardedFor:  cfg.RateLimit.TrustXFF,
			AddRateLimitHeaders: cfg.RateLimit.AddHeaders,
		},
		Concurrency: ratelimit.ConcurrencyOptions{
			Max:            cfg.Concurrency.Max,
			AcquireTimeout: cfg.Concurrency.Timeout,
			Logger:         log,
		},
		Metrics:            m,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
	}
	if m != nil {
		deps.Gatherer = reg
	}
	if memStats != nil {
		deps.Stats = memStats
	}
	a.handler = httpapi.NewRouter(deps)

	return a, nil
}

// windowStore devolve nil quando o rate limit está desligado.
func (a *App) windowStore() (domain.WindowStore, error) {
	rl := a.cfg.RateLimit
	if !rl.Enabled {
		return nil, nil
	}
	w := domain.Window{MaxRequests: rl.MaxRequests, Duration: rl.Duration}

	if rl.Store == "redis" {
		return infra.NewRedisWindowStore(a.rdb, w)
	}

	mem, err := infra.NewMemoryWindowStore(w, infra.WithShards(rl.Shards), infra.WithCleanupEvery(rl.CleanupEvery))
	if err != nil {
		return nil, err
	}
	a.janitor = mem
	return mem, nil
}

func (a *App) analysisService() *analysis.Service {
	up := a.cfg.Upstream
	httpClient := &http.Client{Timeout: up.Timeout}
	throttle := collaborator.NewThrottle(up.RPS, up.Burst)

	return &analysis.Service{
		Chat: collaborator.NewOpenAIChat(collaborator.OpenAIConfig{
			APIKey:      up.GroqAPIKey,
			BaseURL:     up.OpenAIBaseURL,
			HTTPClient:  httpClient,
			Model:       up.ChatModel,
			Temperature: up.Temperature,
			MaxTokens:   up.MaxTokens,
			Throttle:    throttle,
		}),
		Transcriber: collaborator.NewOpenAITranscriber(collaborator.OpenAIConfig{
			APIKey:     up.GroqAPIKey,
			BaseURL:    up.OpenAIBaseURL,
			HTTPClient: httpClient,
			Model:      up.TranscriptionModel,
			Throttle:   throttle,
		}),
		Captioner: collaborator.NewHFCaptioner(up.CaptionURL, up.HuggingFaceAPIKey, up.Timeout, throttle),
		TempDir:   a.cfg.App.TempDir,
		Logger:    a.log,
	}
}

func (a *App) Handler() http.Handler { return a.handler }

// Addr devolve o endereço em que o servidor está escutando (após Run começar).
func (a *App) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Run serve até ctx encerrar e então faz o shutdown gracioso.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.App.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.App.ListenAddr, err)
	}
	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.listener = ln
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// uploads de até 50MB e chamadas lentas aos colaboradores
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  90 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.janitor != nil {
		a.janitor.StartJanitor(ctx, func(removed int) {
			if removed > 0 {
				a.log.Debug("rate limit janitor sweep", zap.Int("removed", removed))
			}
		})
	}

	g.Go(func() error {
		a.log.Info("gateway listening",
			zap.String("addr", ln.Addr().String()),
			zap.Bool("rate_enabled", a.cfg.RateLimit.Enabled),
			zap.Int("rate_max_requests", a.cfg.RateLimit.MaxRequests),
			zap.Duration("rate_duration", a.cfg.RateLimit.Duration),
			zap.String("rate_store", a.cfg.RateLimit.Store),
			zap.Int("concurrency_max", a.cfg.Concurrency.Max),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.App.ShutdownTimeout)
		defer cancel()
		a.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Close() {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.log.Warn("redis close", zap.Error(err))
		}
	}
}
