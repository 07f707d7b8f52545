package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/monitoring"
)

func newFallbackLimiter(t *testing.T, limitPerMin int) *RateLimiter {
	t.Helper()

	// Empty address disables Redis; everything goes through the in-memory
	// token bucket.
	redisClient, err := NewRedisClient("", "", 0)
	require.NoError(t, err)
	require.False(t, redisClient.IsEnabled())

	config := DefaultConfig()
	config.IPLimitPerMin = limitPerMin

	return NewRateLimiter(redisClient, config, monitoring.NewMetrics())
}

func TestAllowIPFallbackBucket(t *testing.T) {
	// Limit 1/min with the minimum burst of 5: the first five requests pass,
	// the sixth is blocked.
	rl := newFallbackLimiter(t, 1)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := rl.AllowIP(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 1, result.Limit)
	}

	result, err := rl.AllowIP(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Positive(t, result.RetryAfter)
}

func TestAllowIPIsolatesAddresses(t *testing.T) {
	rl := newFallbackLimiter(t, 1)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		rl.AllowIP(ctx, "203.0.113.7")
	}

	result, err := rl.AllowIP(ctx, "198.51.100.9")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestInvalidateIPInMemory(t *testing.T) {
	rl := newFallbackLimiter(t, 1)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		rl.AllowIP(ctx, "203.0.113.7")
	}
	result, _ := rl.AllowIP(ctx, "203.0.113.7")
	require.False(t, result.Allowed)

	require.NoError(t, rl.InvalidateIP(ctx, "203.0.113.7"))

	result, err := rl.AllowIP(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestGetStatsFallbackOnly(t *testing.T) {
	rl := newFallbackLimiter(t, 60)
	rl.AllowIP(context.Background(), "203.0.113.7")

	stats := rl.GetStats()
	assert.Equal(t, false, stats["redis_enabled"])
	assert.Equal(t, 1, stats["fallback_limiters"])
	_, hasPool := stats["redis_pool"]
	assert.False(t, hasPool)
}

func TestIPRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := newFallbackLimiter(t, 1)

	r := gin.New()
	r.Use(rl.IPRateLimitMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		r.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "1", last.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "rate limit exceeded")
}

func TestIPRateLimitMiddlewareSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := newFallbackLimiter(t, 60)

	r := gin.New()
	r.Use(rl.IPRateLimitMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:1234"
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestEndpointRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Generous IP limit, tight endpoint limit: the endpoint blocks first.
	rl := newFallbackLimiter(t, 60)

	r := gin.New()
	r.POST("/compare", rl.EndpointRateLimitMiddleware("compare", 1),
		func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/compare", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		r.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "1", last.Header().Get("X-RateLimit-Endpoint-Limit"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.Contains(t, last.Body.String(), "compare")
}

func TestHandleInvalidateIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := newFallbackLimiter(t, 1)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		rl.AllowIP(ctx, "203.0.113.7")
	}
	blocked, _ := rl.AllowIP(ctx, "203.0.113.7")
	require.False(t, blocked.Allowed)

	r := gin.New()
	r.POST("/ratelimit/invalidate/:ip", rl.HandleInvalidateIP())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ratelimit/invalidate/203.0.113.7", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "invalidated")

	result, err := rl.AllowIP(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestHandleRateLimitStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := newFallbackLimiter(t, 60)

	r := gin.New()
	r.GET("/ratelimit/status", rl.HandleRateLimitStatus())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratelimit/status", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ip_per_minute")
	assert.Contains(t, w.Body.String(), "limiter")
}
