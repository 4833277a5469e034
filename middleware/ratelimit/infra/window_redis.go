package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"analysis-gateway/middleware/ratelimit/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// admitScript executa podar -> contar -> comparar -> anexar num único passo.
// Scores são microssegundos (cabem sem perda num double).
//
// Retorno: {allowed(0|1), count, oldestScore}
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]
local ttl = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local oldest = now
local head = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if head[2] then
  oldest = tonumber(head[2])
end

if count >= limit then
  return {0, count, oldest}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, ttl)
return {1, count + 1, oldest}
`)

// RedisWindowStore é a janela deslizante em sorted sets do Redis, útil quando
// várias réplicas do gateway precisam dividir a mesma cota.
type RedisWindowStore struct {
	rdb    redis.Scripter
	window domain.Window
	prefix string
}

type RedisWindowOption func(*RedisWindowStore)

func WithWindowPrefix(prefix string) RedisWindowOption {
	return func(s *RedisWindowStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisWindowStore(rdb redis.Scripter, w domain.Window, opts ...RedisWindowOption) (*RedisWindowStore, error) {
	if !w.Valid() {
		return nil, domain.ErrInvalidWindow
	}
	s := &RedisWindowStore{
		rdb:    rdb,
		window: w,
		prefix: "ratelimit:window",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *RedisWindowStore) Window() domain.Window { return s.window }

// Admit implementa domain.WindowStore.
func (s *RedisWindowStore) Admit(ctx context.Context, key domain.Key, now time.Time) (domain.Decision, error) {
	nowMicro := now.UnixMicro()
	windowMicro := s.window.Duration.Microseconds()
	member := fmt.Sprintf("%d-%s", nowMicro, uuid.NewString())
	ttl := s.window.Duration.Milliseconds() + 1000

	res, err := admitScript.Run(ctx, s.rdb,
		[]string{s.prefix + ":" + string(key)},
		nowMicro, windowMicro, s.window.MaxRequests, member, ttl,
	).Int64Slice()
	if err != nil {
		return domain.Decision{}, fmt.Errorf("redis admit script: %w", err)
	}
	if len(res) != 3 {
		return domain.Decision{}, fmt.Errorf("redis admit script: unexpected reply length %d", len(res))
	}

	dec := domain.Decision{
		Allowed: res[0] == 1,
		Limit:   s.window.MaxRequests,
		Reset:   time.UnixMicro(res[2]).Add(s.window.Duration),
	}
	if dec.Allowed {
		dec.Remaining = s.window.MaxRequests - int(res[1])
		return dec, nil
	}
	dec.RetryAfter = dec.Reset.Sub(now)
	if dec.RetryAfter < 0 {
		dec.RetryAfter = 0
	}
	return dec, nil
}

var _ domain.WindowStore = (*RedisWindowStore)(nil)
