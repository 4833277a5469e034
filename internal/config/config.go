// Package config lê a configuração do gateway de variáveis de ambiente
// (opcionalmente carregadas de um .env) com valores padrão.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	App         AppSettings         `mapstructure:"app"`
	HTTP        HTTPSettings        `mapstructure:"http"`
	RateLimit   RateLimitSettings   `mapstructure:"rate"`
	Concurrency ConcurrencySettings `mapstructure:"concurrency"`
	Stats       StatsSettings       `mapstructure:"stats"`
	Redis       RedisSettings       `mapstructure:"redis"`
	Upstream    UpstreamSettings    `mapstructure:"upstream"`
}

type AppSettings struct {
	Env             string        `mapstructure:"env"`
	ListenAddr      string        `mapstructure:"listen_addr"`
	TempDir         string        `mapstructure:"temp_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type HTTPSettings struct {
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	MetricsEnabled     bool     `mapstructure:"metrics_enabled"`
}

// RateLimitSettings configura a janela deslizante por cliente.
type RateLimitSettings struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  int           `mapstructure:"max_requests"`
	Duration     time.Duration `mapstructure:"duration"`
	Store        string        `mapstructure:"store"` // "memory" ou "redis"
	Shards       int           `mapstructure:"shards"`
	CleanupEvery time.Duration `mapstructure:"cleanup_every"`
	KeyHeader    string        `mapstructure:"key_header"`
	TrustXFF     bool          `mapstructure:"trust_xff"`
	AddHeaders   bool          `mapstructure:"add_headers"`
}

type ConcurrencySettings struct {
	Max     int           `mapstructure:"max"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StatsSettings struct {
	Enabled   bool          `mapstructure:"enabled"`
	Store     string        `mapstructure:"store"` // "memory", "redis" ou vazio (redis se houver REDIS_ADDR)
	Prefix    string        `mapstructure:"prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	Bucket    string        `mapstructure:"bucket"`
	TrackKeys bool          `mapstructure:"track_keys"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// UpstreamSettings descreve os colaboradores externos (chat, transcrição, legenda).
type UpstreamSettings struct {
	GroqAPIKey         string        `mapstructure:"groq_api_key"`
	OpenAIBaseURL      string        `mapstructure:"openai_base_url"`
	ChatModel          string        `mapstructure:"chat_model"`
	Temperature        float64       `mapstructure:"temperature"`
	MaxTokens          int64         `mapstructure:"max_tokens"`
	TranscriptionModel string        `mapstructure:"transcription_model"`
	HuggingFaceAPIKey  string        `mapstructure:"huggingface_api_key"`
	CaptionURL         string        `mapstructure:"caption_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RPS                float64       `mapstructure:"rps"`
	Burst              int           `mapstructure:"burst"`
}

// envNames liga cada chave às variáveis de ambiente aceitas, em ordem de prioridade.
var envNames = map[string][]string{
	"app.env":              {"APP_ENV"},
	"app.listen_addr":      {"LISTEN_ADDR"},
	"app.temp_dir":         {"TEMP_DIR"},
	"app.shutdown_timeout": {"SHUTDOWN_TIMEOUT"},

	"http.cors_allowed_origins": {"CORS_ALLOWED_ORIGINS"},
	"http.metrics_enabled":      {"METRICS_ENABLED"},

	"rate.enabled":       {"RATE_ENABLED"},
	"rate.max_requests":  {"RATE_LIMIT_MAX_REQUESTS", "MAX_REQUESTS"},
	"rate.duration":      {"RATE_LIMIT_DURATION"},
	"rate.store":         {"RATE_LIMIT_STORE"},
	"rate.shards":        {"RATE_LIMIT_SHARDS"},
	"rate.cleanup_every": {"RATE_LIMIT_CLEANUP_EVERY"},
	"rate.key_header":    {"RATE_KEY_HEADER"},
	"rate.trust_xff":     {"TRUST_XFF"},
	"rate.add_headers":   {"ADD_RATELIMIT_HEADERS"},

	"concurrency.max":     {"CONCURRENCY_MAX"},
	"concurrency.timeout": {"CONCURRENCY_TIMEOUT"},

	"stats.enabled":    {"RATE_STATS_ENABLED"},
	"stats.store":      {"RATE_STATS_STORE"},
	"stats.prefix":     {"RATE_STATS_PREFIX"},
	"stats.ttl":        {"RATE_STATS_TTL"},
	"stats.bucket":     {"RATE_STATS_BUCKET"},
	"stats.track_keys": {"RATE_STATS_TRACK_KEYS"},

	"redis.addr":     {"REDIS_ADDR", "RATE_STATS_REDIS_ADDR"},
	"redis.password": {"REDIS_PASSWORD", "RATE_STATS_REDIS_PASSWORD"},
	"redis.db":       {"REDIS_DB", "RATE_STATS_REDIS_DB"},

	"upstream.groq_api_key":        {"GROQ_API_KEY"},
	"upstream.openai_base_url":     {"GROQ_BASE_URL"},
	"upstream.chat_model":          {"CHAT_MODEL"},
	"upstream.temperature":         {"CHAT_TEMPERATURE"},
	"upstream.max_tokens":          {"CHAT_MAX_TOKENS"},
	"upstream.transcription_model": {"TRANSCRIPTION_MODEL"},
	"upstream.huggingface_api_key": {"HUGGINGFACE_API_KEY"},
	"upstream.caption_url":         {"CAPTION_URL"},
	"upstream.timeout":             {"UPSTREAM_TIMEOUT"},
	"upstream.rps":                 {"UPSTREAM_RPS"},
	"upstream.burst":               {"UPSTREAM_BURST"},
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, names := range envNames {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// secondsToDurationHook aceita número puro como segundos ("60" = 1m);
// valores com unidade seguem para time.ParseDuration.
func secondsToDurationHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) || from.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return data, nil
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.listen_addr", ":8000")
	v.SetDefault("app.temp_dir", "")
	v.SetDefault("app.shutdown_timeout", "10s")

	v.SetDefault("http.cors_allowed_origins", []string{"*"})
	v.SetDefault("http.metrics_enabled", true)

	v.SetDefault("rate.enabled", true)
	v.SetDefault("rate.max_requests", 30)
	v.SetDefault("rate.duration", "60s")
	v.SetDefault("rate.store", "memory")
	v.SetDefault("rate.shards", 32)
	v.SetDefault("rate.cleanup_every", "2m")
	v.SetDefault("rate.key_header", "")
	v.SetDefault("rate.trust_xff", false)
	v.SetDefault("rate.add_headers", true)

	v.SetDefault("concurrency.max", 100)
	v.SetDefault("concurrency.timeout", "0s")

	v.SetDefault("stats.enabled", false)
	v.SetDefault("stats.store", "")
	v.SetDefault("stats.prefix", "ratelimit:stats")
	v.SetDefault("stats.ttl", "24h")
	v.SetDefault("stats.bucket", "minute")
	v.SetDefault("stats.track_keys", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("upstream.groq_api_key", "")
	v.SetDefault("upstream.openai_base_url", "https://api.groq.com/openai/v1/")
	v.SetDefault("upstream.chat_model", "llama3-70b-8192")
	v.SetDefault("upstream.temperature", 0.1)
	v.SetDefault("upstream.max_tokens", 1000)
	v.SetDefault("upstream.transcription_model", "whisper-large-v3")
	v.SetDefault("upstream.huggingface_api_key", "")
	v.SetDefault("upstream.caption_url", "https://api-inference.huggingface.co/models/Salesforce/blip-image-captioning-base")
	v.SetDefault("upstream.timeout", "60s")
	v.SetDefault("upstream.rps", 0)
	v.SetDefault("upstream.burst", 1)
}

// StatsBackend resolve onde ficam as estatísticas de admissão.
func (c *Config) StatsBackend() string {
	if c.Stats.Store != "" {
		return c.Stats.Store
	}
	if strings.TrimSpace(c.Redis.Addr) != "" {
		return "redis"
	}
	return "memory"
}

// UsesRedis indica se algum componente precisa do cliente Redis.
func (c *Config) UsesRedis() bool {
	return c.RateLimit.Store == "redis" || (c.Stats.Enabled && c.StatsBackend() == "redis")
}

func (c *Config) Validate() error {
	var errs []error

	c.RateLimit.Store = strings.ToLower(strings.TrimSpace(c.RateLimit.Store))
	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_STORE must be memory or redis, got %q", c.RateLimit.Store))
	}

	c.Stats.Store = strings.ToLower(strings.TrimSpace(c.Stats.Store))
	switch c.Stats.Store {
	case "", "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("RATE_STATS_STORE must be memory or redis, got %q", c.Stats.Store))
	}

	if c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX_REQUESTS must be > 0"))
	}
	if c.RateLimit.Duration <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_DURATION must be > 0"))
	}
	if c.RateLimit.Shards <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_SHARDS must be > 0"))
	}
	if c.Concurrency.Max < 0 {
		errs = append(errs, errors.New("CONCURRENCY_MAX must be >= 0"))
	}
	if c.UsesRedis() && strings.TrimSpace(c.Redis.Addr) == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when RATE_LIMIT_STORE=redis or RATE_STATS_STORE=redis"))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be > 0"))
	}
	if len(c.HTTP.CORSAllowedOrigins) == 0 {
		c.HTTP.CORSAllowedOrigins = []string{"*"}
	}

	return errors.Join(errs...)
}
