package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capacitylab/fleet-advisor/api/middleware"
)

func okRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"))
	}
	assert.False(t, limiter.Allow("10.0.0.1"))

	// counts are tracked per key
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestRateLimiter_WindowResets(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, 20*time.Millisecond)

	require.True(t, limiter.Allow("10.0.0.1"))
	require.False(t, limiter.Allow("10.0.0.1"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	r := okRouter(middleware.RateLimit(limiter))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestTraceID_GeneratedWhenMissing(t *testing.T) {
	r := okRouter(middleware.TraceID())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get(middleware.TraceIDHeader))
}

func TestTraceID_PropagatesIncoming(t *testing.T) {
	r := okRouter(middleware.TraceID())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(middleware.TraceIDHeader, "trace-abc")
	r.ServeHTTP(w, req)

	assert.Equal(t, "trace-abc", w.Header().Get(middleware.TraceIDHeader))
}

func TestCORS_AllowedOrigin(t *testing.T) {
	cfg := middleware.DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://ops.example.com"}
	r := okRouter(middleware.CORS(cfg))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://ops.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	cfg := middleware.DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://ops.example.com"}
	r := okRouter(middleware.CORS(cfg))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	r := okRouter(middleware.CORS(middleware.DefaultCORSConfig()))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := okRouter(middleware.SecurityHeaders())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
