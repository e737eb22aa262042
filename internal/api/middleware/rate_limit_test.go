package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gatekeeper/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimitConfig(requests, window, burst int) *config.Config {
	cfg := &config.Config{}
	cfg.RateLimit.Requests = requests
	cfg.RateLimit.Window = window
	cfg.RateLimit.Burst = burst
	return cfg
}

func newRateLimitedRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *RateLimiter) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	limiter := NewRateLimiter(ctx, cfg)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/swagger/*any", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router, limiter
}

func doRequest(router *gin.Engine, path, clientIP string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = clientIP + ":12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	tests := []struct {
		name          string
		config        *config.Config
		requests      int
		expectedCodes []int
		clientIP      string
	}{
		{
			name:          "Normal usage - under limit",
			config:        rateLimitConfig(10, 60, 10),
			requests:      3,
			expectedCodes: []int{200, 200, 200},
			clientIP:      "192.168.1.1",
		},
		{
			name:          "At rate limit",
			config:        rateLimitConfig(2, 60, 2),
			requests:      2,
			expectedCodes: []int{200, 200},
			clientIP:      "192.168.1.2",
		},
		{
			name:          "Exceeds burst",
			config:        rateLimitConfig(100, 60, 2),
			requests:      3,
			expectedCodes: []int{200, 200, 429},
			clientIP:      "192.168.1.3",
		},
		{
			name:          "Burst defaults to requests",
			config:        rateLimitConfig(1, 60, 0),
			requests:      2,
			expectedCodes: []int{200, 429},
			clientIP:      "192.168.1.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newRateLimitedRouter(t, tt.config)

			for i := 0; i < tt.requests; i++ {
				w := doRequest(router, "/test", tt.clientIP)
				assert.Equal(t, tt.expectedCodes[i], w.Code,
					"Request %d: expected status %d but got %d",
					i+1, tt.expectedCodes[i], w.Code)
			}
		})
	}
}

func TestRateLimiter_Headers(t *testing.T) {
	router, _ := newRateLimitedRouter(t, rateLimitConfig(1, 60, 1))

	w := doRequest(router, "/test", "10.0.0.1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = doRequest(router, "/test", "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
}

func TestRateLimiter_SeparateClients(t *testing.T) {
	router, _ := newRateLimitedRouter(t, rateLimitConfig(1, 60, 1))

	assert.Equal(t, http.StatusOK, doRequest(router, "/test", "192.168.1.4").Code)
	assert.Equal(t, http.StatusOK, doRequest(router, "/test", "192.168.1.5").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(router, "/test", "192.168.1.4").Code)
}

func TestRateLimiter_SkipsSwagger(t *testing.T) {
	router, _ := newRateLimitedRouter(t, rateLimitConfig(1, 60, 1))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, "/swagger/index.html", "10.0.0.2").Code)
	}
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	_, limiter := newRateLimitedRouter(t, rateLimitConfig(10, 60, 10))
	now := time.Now()

	limiter.getLimiter("192.168.1.1", now.Add(-time.Hour))
	limiter.getLimiter("192.168.1.2", now.Add(-time.Hour))
	limiter.getLimiter("192.168.1.3", now)
	require.Len(t, limiter.visitors, 3)

	limiter.evictIdle(now)

	assert.Len(t, limiter.visitors, 1)
	assert.Contains(t, limiter.visitors, "192.168.1.3")
}
