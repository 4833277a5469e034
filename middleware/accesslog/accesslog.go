package accesslog

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestID injeta um identificador de correlação no contexto e no header de resposta.
func RequestID() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Logger devolve o logger base com o request_id do contexto.
func Logger(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if id := RequestIDFrom(ctx); id != "" {
		return base.With(zap.String("request_id", id))
	}
	return base
}

// Middleware mede o request inteiro e emite exatamente uma linha de log por request,
// inclusive quando um estágio anterior (rate limit, upload guard) encerrou o fluxo.
func Middleware(log *zap.Logger) func(next http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, outcome := withOutcome(r.Context())
			rec := NewRecorder(w)

			next.ServeHTTP(rec, r.WithContext(ctx))

			stage, detail, client := outcome.snapshot()
			fields := []zap.Field{
				zap.String("request_id", RequestIDFrom(ctx)),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.Int64("bytes", rec.Bytes()),
			}
			if client != "" {
				fields = append(fields, zap.String("client", client))
			}
			if stage != "" {
				fields = append(fields, zap.String("stage", stage))
			}
			if detail != "" {
				fields = append(fields, zap.String("detail", detail))
			}

			if rec.Status() >= http.StatusInternalServerError {
				log.Error("request failed", fields...)
				return
			}
			log.Info("request completed", fields...)
		})
	}
}
