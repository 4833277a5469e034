package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.ListenAddr != ":8000" {
		t.Fatalf("unexpected listen addr %q", cfg.App.ListenAddr)
	}
	if cfg.RateLimit.MaxRequests != 30 || cfg.RateLimit.Duration != time.Minute {
		t.Fatalf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}
	if cfg.RateLimit.Store != "memory" {
		t.Fatalf("expected memory store by default, got %q", cfg.RateLimit.Store)
	}
	if cfg.Concurrency.Max != 100 {
		t.Fatalf("expected concurrency max 100, got %d", cfg.Concurrency.Max)
	}
	if cfg.Upstream.ChatModel != "llama3-70b-8192" || cfg.Upstream.MaxTokens != 1000 || cfg.Upstream.Temperature != 0.1 {
		t.Fatalf("unexpected upstream defaults %+v", cfg.Upstream)
	}
	if len(cfg.HTTP.CORSAllowedOrigins) != 1 || cfg.HTTP.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins %v", cfg.HTTP.CORSAllowedOrigins)
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_DURATION", "10s")
	t.Setenv("CONCURRENCY_TIMEOUT", "250ms")
	t.Setenv("GROQ_API_KEY", "gsk-123")
	t.Setenv("HUGGINGFACE_API_KEY", "hf-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.ListenAddr != ":9999" {
		t.Fatalf("unexpected listen addr %q", cfg.App.ListenAddr)
	}
	if cfg.RateLimit.MaxRequests != 5 || cfg.RateLimit.Duration != 10*time.Second {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if cfg.Concurrency.Timeout != 250*time.Millisecond {
		t.Fatalf("unexpected concurrency timeout %s", cfg.Concurrency.Timeout)
	}
	if cfg.Upstream.GroqAPIKey != "gsk-123" || cfg.Upstream.HuggingFaceAPIKey != "hf-123" {
		t.Fatalf("api keys not loaded: %+v", cfg.Upstream)
	}
}

func TestLoad_BareNumberDurationIsSeconds(t *testing.T) {
	t.Setenv("RATE_LIMIT_DURATION", "60")
	t.Setenv("UPSTREAM_TIMEOUT", "1.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RateLimit.Duration != time.Minute {
		t.Fatalf("expected 1m, got %s", cfg.RateLimit.Duration)
	}
	if cfg.Upstream.Timeout != 1500*time.Millisecond {
		t.Fatalf("expected 1.5s, got %s", cfg.Upstream.Timeout)
	}
}

func TestLoad_InvalidDurationFails(t *testing.T) {
	t.Setenv("RATE_LIMIT_DURATION", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoad_CORSOriginsFromCommaList(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test,https://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.HTTP.CORSAllowedOrigins) != 2 || cfg.HTTP.CORSAllowedOrigins[1] != "https://b.test" {
		t.Fatalf("unexpected origins %v", cfg.HTTP.CORSAllowedOrigins)
	}
}

func TestLoad_StatsWithoutRedisUseMemory(t *testing.T) {
	t.Setenv("RATE_STATS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StatsBackend() != "memory" {
		t.Fatalf("expected memory stats backend, got %q", cfg.StatsBackend())
	}
	if cfg.UsesRedis() {
		t.Fatalf("memory stats must not require redis")
	}
}

func TestLoad_RedisStatsRequireAddr(t *testing.T) {
	t.Setenv("RATE_STATS_ENABLED", "true")
	t.Setenv("RATE_STATS_STORE", "redis")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "REDIS_ADDR is required") {
		t.Fatalf("expected REDIS_ADDR error, got %v", err)
	}
}

func TestLoad_LegacyStatsRedisAddr(t *testing.T) {
	t.Setenv("RATE_STATS_ENABLED", "true")
	t.Setenv("RATE_STATS_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("expected redis addr from RATE_STATS_REDIS_ADDR, got %q", cfg.Redis.Addr)
	}
	if cfg.StatsBackend() != "redis" {
		t.Fatalf("expected redis stats backend, got %q", cfg.StatsBackend())
	}
}

func TestLoad_RedisStoreRequiresAddr(t *testing.T) {
	t.Setenv("RATE_LIMIT_STORE", "redis")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "REDIS_ADDR is required") {
		t.Fatalf("expected REDIS_ADDR error, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Config{
		RateLimit: RateLimitSettings{Store: "etcd"},
		Upstream:  UpstreamSettings{Timeout: time.Second},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"RATE_LIMIT_STORE", "RATE_LIMIT_MAX_REQUESTS", "RATE_LIMIT_DURATION", "RATE_LIMIT_SHARDS"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}
