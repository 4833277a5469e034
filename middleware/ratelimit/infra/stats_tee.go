package infra

import (
	"context"
	"errors"

	"analysis-gateway/middleware/ratelimit/domain"
)

type teeStats []domain.StatsStore

// TeeStats repassa cada evento para todos os stores não nulos.
// Retorna nil quando não sobra nenhum.
func TeeStats(stores ...domain.StatsStore) domain.StatsStore {
	var out teeStats
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (t teeStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range t {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
