package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão de admissão.
//
// Method/Path são strings genéricas; cuidado com cardinalidade ao guardar Key
// em Redis/Prometheus.
type StatsEvent struct {
	Key       Key
	Allowed   bool
	Remaining int

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas das decisões.
// O middleware trata erro como best-effort (não derruba o request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
