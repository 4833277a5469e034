package application

import (
	"context"
	"time"

	"analysis-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
type Service struct {
	Store  domain.WindowStore
	Logger *zap.Logger
	// Now permite fixar o relógio nos testes. Nil usa time.Now.
	Now func() time.Time
}

func (s Service) Decide(ctx context.Context, key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	dec, err := s.Store.Admit(ctx, key, now)
	if err != nil {
		// falha do store não derruba o request (fail-open)
		if s.Logger != nil {
			s.Logger.Warn("rate limit check failed", zap.String("key", string(key)), zap.Error(err))
		}
		return domain.Decision{Allowed: true, Limit: s.Store.Window().MaxRequests}
	}

	if !dec.Allowed && dec.RetryAfter < time.Second {
		dec.RetryAfter = time.Second
	}
	return dec
}
