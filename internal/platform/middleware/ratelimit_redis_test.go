package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisLimiter(t *testing.T, limit int) (*RedisRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisRateLimiter(rdb, limit, time.Minute, "booking", zerolog.Nop()), mr
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	l, mr := newTestRedisLimiter(t, 2)
	ctx := context.Background()

	ok, remaining, _, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)

	ok, remaining, _, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)

	ok, _, reset, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, reset > 0 && reset <= time.Minute, "reset %s", reset)

	// Other clients have their own window.
	ok, _, _, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, mr.Exists("booking:10.0.0.1"))
	mr.FastForward(time.Minute + time.Second)
	ok, _, _, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok, "expected a fresh window after expiry")
}

func TestRedisRateLimiter_Middleware(t *testing.T) {
	l, _ := newTestRedisLimiter(t, 1)
	e := echo.New()
	handler := l.Middleware()(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(httptest.NewRequest(http.MethodPost, "/appointments", nil), rec)))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	err := handler(e.NewContext(httptest.NewRequest(http.MethodPost, "/appointments", nil), rec))
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	assert.Equal(t, http.StatusTooManyRequests, he.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	l, mr := newTestRedisLimiter(t, 1)
	mr.Close()

	e := echo.New()
	called := 0
	handler := l.Middleware()(func(c echo.Context) error {
		called++
		return c.NoContent(http.StatusOK)
	})
	for i := 0; i < 3; i++ {
		assert.NoError(t, handler(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())))
	}
	assert.Equal(t, 3, called)
}
