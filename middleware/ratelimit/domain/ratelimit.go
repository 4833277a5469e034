package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"time"
)

type Key string

// Window descreve a janela deslizante: no máximo MaxRequests admissões
// dentro de qualquer intervalo de Duration terminando em "agora".
type Window struct {
	MaxRequests int
	Duration    time.Duration
}

// Valid indica se a janela tem valores utilizáveis.
func (w Window) Valid() bool {
	return w.MaxRequests > 0 && w.Duration > 0
}

// WindowStore guarda os timestamps de cada chave e decide a admissão.
//
// Admit deve executar podar -> contar -> comparar -> anexar de forma atômica
// para a mesma chave. Quando rejeita, o estado da chave não é alterado.
type WindowStore interface {
	Admit(ctx context.Context, key Key, now time.Time) (Decision, error)
	Window() Window
}

type Decision struct {
	Allowed bool

	Limit     int
	Remaining int
	// Reset é o instante em que o timestamp mais antigo da janela expira.
	Reset time.Time
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
