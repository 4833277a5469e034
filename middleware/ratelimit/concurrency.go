package ratelimit

import (
	"net/http"
	"time"

	"analysis-gateway/internal/apierror"
	"analysis-gateway/middleware/accesslog"
	"analysis-gateway/middleware/ratelimit/application"
	"analysis-gateway/middleware/ratelimit/infra"

	"go.uber.org/zap"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         *zap.Logger
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, waited, ok := svc.Acquire(r.Context())
			if !ok {
				accesslog.Logger(r.Context(), opts.Logger).Warn("no concurrency slot", zap.Duration("waited", waited), zap.Int("max", opts.Max))
				apierror.Write(w, r, "concurrency", apierror.New(opts.RejectStatus, apierror.MsgOverCapacity))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
