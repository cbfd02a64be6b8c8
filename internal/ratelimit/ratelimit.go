// Package ratelimit ограничивает частоту запросов к чувствительным эндпоинтам
// (логин, регистрация, вход через Google) скользящим окном в Redis.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Khalidabdulkadir/Dhadhan-App/internal/metrics"
)

// KEYS[1] - ключ окна; ARGV: now, windowStart, windowSec, member, limit.
// Возвращает число запросов в окне или -1, если лимит исчерпан.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)

local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
else
  return -1
end
`

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type RedisLimiter struct {
	client redis.Scripter
	script *redis.Script
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		script: redis.NewScript(slidingWindowScript),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now()
	windowSec := int64(l.window.Seconds())
	if windowSec < 1 {
		windowSec = 1
	}
	// миллисекунды, чтобы запросы в одну секунду не схлопывались по score
	nowMs := now.UnixMilli()
	windowStart := nowMs - windowSec*1000
	member := strconv.FormatInt(now.UnixNano(), 10)

	res, err := l.script.Run(ctx, l.client, []string{"rate_limit:" + key},
		nowMs, windowStart, windowSec, member, l.limit).Int()
	if err != nil {
		return false, fmt.Errorf("ratelimit: failed to evaluate window for %s: %w", key, err)
	}
	return res >= 0, nil
}

// Middleware пропускает запрос, если лимитер недоступен (fail-open).
// Nil-лимитер означает, что Redis не настроен.
func Middleware(l Limiter, scope string, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := scope + ":ip:" + clientIP(r)
			allowed, err := l.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("ratelimit: limiter unavailable, letting request through")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if m != nil {
					m.RateLimited.WithLabelValues(scope).Inc()
				}
				log.Info().Str("scope", scope).Str("key", key).Msg("ratelimit: request rejected")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests, please try again later"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RemoteAddr уже переписан middleware.RealIP, если стоит прокси.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
