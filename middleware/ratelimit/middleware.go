package ratelimit

import (
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"analysis-gateway/internal/apierror"
	"analysis-gateway/middleware/accesslog"
	"analysis-gateway/middleware/ratelimit/application"
	"analysis-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

type KeyFunc func(r *http.Request) string

type Options struct {
	Store               domain.WindowStore
	Stats               domain.StatsStore
	Logger              *zap.Logger
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RejectStatus        int
	AddRateLimitHeaders bool
	// Now fixa o relógio nos testes.
	Now func() time.Time
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := application.Service{
		Store:  opts.Store,
		Logger: opts.Logger,
		Now:    opts.Now,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)
			accesslog.SetClient(r.Context(), key)

			dec := svc.Decide(r.Context(), domain.Key(key))
			if opts.Stats != nil {
				err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:       domain.Key(key),
					Allowed:   dec.Allowed,
					Remaining: dec.Remaining,
					Method:    r.Method,
					Path:      r.URL.Path,
					At:        time.Now(),
				})
				if err != nil {
					accesslog.Logger(r.Context(), opts.Logger).Debug("rate limit stats not recorded", zap.Error(err))
				}
			}

			if opts.AddRateLimitHeaders {
				setRateLimitHeaders(w.Header(), dec)
			}

			if !dec.Allowed {
				w.Header().Set("Retry-After", formatInt(int(math.Ceil(dec.RetryAfter.Seconds()))))
				apierror.Write(w, r, "rate_limit", apierror.New(opts.RejectStatus, apierror.MsgRateLimited))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(h http.Header, dec domain.Decision) {
	if dec.Limit <= 0 {
		return
	}
	h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
	h.Set("X-RateLimit-Remaining", formatInt(max(dec.Remaining, 0)))
	if !dec.Reset.IsZero() {
		h.Set("X-RateLimit-Reset", formatInt64(dec.Reset.Unix()))
	}
}
