package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"socialgraph/internal/observability"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextMiddleware_PropagatesRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())

	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = observability.ExtractRequestID(c.UserContext())
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "req-123", seen)
}

func TestContextMiddleware_GeneratesRequestIDWithoutRequestIDMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ContextMiddleware())

	var seen string
	app.Get("/", func(c *fiber.Ctx) error {
		seen = observability.ExtractRequestID(c.UserContext())
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Len(t, seen, 36)
}

func TestStructuredLogger_WritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	prev := observability.Logger
	observability.Logger = observability.NewLogger(&buf, "production")
	defer func() { observability.Logger = prev }()

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	app.Use(StructuredLogger())
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(fiber.HeaderXRequestID, "abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	out := buf.String()
	assert.Contains(t, out, `"msg":"request processed"`)
	assert.Contains(t, out, `"request_id":"abc"`)
	assert.Contains(t, out, `"path":"/ping"`)
}

func TestTracingMiddleware_SetsTraceHeader(t *testing.T) {
	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))
}

func newRedis(t *testing.T) *redis.Client {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCheckRateLimit(t *testing.T) {
	ctx := context.Background()

	_, err := CheckRateLimit(ctx, nil, "r", "1", 1, time.Minute)
	assert.ErrorIs(t, err, ErrNoRedis)

	rdb := newRedis(t)
	for i := 0; i < 2; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "r", "1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := CheckRateLimit(ctx, rdb, "r", "1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	ttl, err := rdb.TTL(ctx, "rl:r:1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	get := func(app *fiber.App) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("disabled", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(RateLimitConfig{Limit: 1, Window: time.Minute, Disabled: true}), handler)
		assert.Equal(t, http.StatusOK, get(app))
		assert.Equal(t, http.StatusOK, get(app))
	})

	t.Run("fail open with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(RateLimitConfig{Limit: 1, Window: time.Minute}), handler)
		assert.Equal(t, http.StatusOK, get(app))
	})

	t.Run("fail closed with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(RateLimitConfig{Limit: 1, Window: time.Minute, Policy: FailClosed}), handler)
		assert.Equal(t, http.StatusServiceUnavailable, get(app))
	})

	t.Run("limit exceeded", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(RateLimitConfig{Redis: newRedis(t), Limit: 1, Window: time.Minute}), handler)
		assert.Equal(t, http.StatusOK, get(app))
		assert.Equal(t, http.StatusTooManyRequests, get(app))
	})
}
