package infra

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"analysis-gateway/middleware/ratelimit/domain"
)

// MemoryWindowStore é a janela deslizante em memória, particionada em shards.
//
// Cada shard tem seu próprio mutex, então podar/contar/anexar é atômico por chave
// sem um lock global. Chaves cuja janela ficou vazia são removidas pelo janitor.
type MemoryWindowStore struct {
	window       domain.Window
	shards       []*windowShard
	cleanupEvery time.Duration
}

type windowShard struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
}

// clientWindow guarda os timestamps admitidos em ordem crescente.
type clientWindow struct {
	stamps []time.Time
}

type MemoryWindowOption func(*MemoryWindowStore)

func WithShards(n int) MemoryWindowOption {
	return func(s *MemoryWindowStore) {
		if n > 0 {
			s.shards = newShards(n)
		}
	}
}

func WithCleanupEvery(d time.Duration) MemoryWindowOption {
	return func(s *MemoryWindowStore) { s.cleanupEvery = d }
}

func NewMemoryWindowStore(w domain.Window, opts ...MemoryWindowOption) (*MemoryWindowStore, error) {
	if !w.Valid() {
		return nil, domain.ErrInvalidWindow
	}
	s := &MemoryWindowStore{
		window:       w,
		shards:       newShards(32),
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func newShards(n int) []*windowShard {
	out := make([]*windowShard, n)
	for i := range out {
		out[i] = &windowShard{clients: make(map[string]*clientWindow)}
	}
	return out
}

func (s *MemoryWindowStore) Window() domain.Window       { return s.window }
func (s *MemoryWindowStore) CleanupEvery() time.Duration { return s.cleanupEvery }

func (s *MemoryWindowStore) shardFor(key string) *windowShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Admit implementa domain.WindowStore.
func (s *MemoryWindowStore) Admit(_ context.Context, key domain.Key, now time.Time) (domain.Decision, error) {
	sh := s.shardFor(string(key))

	sh.mu.Lock()
	defer sh.mu.Unlock()

	cw, ok := sh.clients[string(key)]
	if !ok {
		cw = &clientWindow{}
		sh.clients[string(key)] = cw
	}

	live := cw.live(now, s.window.Duration)
	dec := domain.Decision{Limit: s.window.MaxRequests}

	if len(live) >= s.window.MaxRequests {
		// rejeição não altera a janela
		dec.Reset = live[0].Add(s.window.Duration)
		dec.RetryAfter = dec.Reset.Sub(now)
		return dec, nil
	}

	cw.stamps = append(live, now)
	dec.Allowed = true
	dec.Remaining = s.window.MaxRequests - len(cw.stamps)
	dec.Reset = cw.stamps[0].Add(s.window.Duration)
	return dec, nil
}

// live retorna o sufixo de timestamps com idade < d. Entradas com idade >= d ficam de fora.
func (cw *clientWindow) live(now time.Time, d time.Duration) []time.Time {
	i := 0
	for i < len(cw.stamps) && now.Sub(cw.stamps[i]) >= d {
		i++
	}
	return cw.stamps[i:]
}

// Cleanup remove as chaves sem nenhum timestamp dentro da janela em `now`.
// Retorna quantas chaves foram removidas.
func (s *MemoryWindowStore) Cleanup(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, cw := range sh.clients {
			if len(cw.live(now, s.window.Duration)) == 0 {
				delete(sh.clients, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Len retorna o número de chaves rastreadas.
func (s *MemoryWindowStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.clients)
		sh.mu.Unlock()
	}
	return n
}

// StartJanitor inicia uma goroutine que remove chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryWindowStore) StartJanitor(ctx context.Context, onSweep func(removed int)) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				removed := s.Cleanup(now)
				if onSweep != nil {
					onSweep(removed)
				}
			}
		}
	}()
}

var _ domain.WindowStore = (*MemoryWindowStore)(nil)
