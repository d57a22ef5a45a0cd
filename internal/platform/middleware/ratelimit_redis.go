package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// fixedWindowScript increments the counter for the current window and starts
// the window's expiry on the first hit. Returns {count, pttl}.
var fixedWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {n, ttl}
`)

// RedisRateLimiter is a fixed-window limiter shared by every instance that
// points at the same Redis. It guards the booking endpoint, where the
// per-process token bucket is too generous behind a load balancer.
type RedisRateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
	logger zerolog.Logger
}

func NewRedisRateLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string, logger zerolog.Logger) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix, logger: logger}
}

// Allow counts one hit for key and reports whether it is within the limit,
// how many hits remain and when the window resets.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Duration, error) {
	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return false, 0, 0, err
	}
	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if ttl < 0 {
		ttl = l.window
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= l.limit, remaining, ttl, nil
}

// Middleware limits by client IP. Redis failures let the request through.
func (l *RedisRateLimiter) Middleware() echo.MiddlewareFunc {
	limit := strconv.Itoa(l.limit)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, remaining, reset, err := l.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				l.logger.Warn().Err(err).Str("prefix", l.prefix).Msg("rate limiter unavailable, allowing request")
				return next(c)
			}
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				secs := int(reset.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				h.Set("Retry-After", strconv.Itoa(secs))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many booking attempts, try again later")
			}
			return next(c)
		}
	}
}
