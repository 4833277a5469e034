package collaborator

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle limita o ritmo de chamadas de saída para um colaborador.
// O valor zero (ou nil) não limita nada.
type Throttle struct {
	lim *rate.Limiter
}

// NewThrottle cria um token bucket com rps requisições por segundo e rajada burst.
// rps <= 0 desliga o limite.
func NewThrottle(rps float64, burst int) *Throttle {
	if rps <= 0 {
		return &Throttle{}
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{lim: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait bloqueia até haver um token ou o ctx encerrar.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.lim == nil {
		return nil
	}
	return t.lim.Wait(ctx)
}
