package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client for testing
// Make sure Redis is running on localhost:6379
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     "localhost:6379",
		Password: "",
		DB:       1, // Use DB 1 for tests (not default DB 0)
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis not available, skipping test")
	}

	client.FlushDB(ctx)

	return client
}

// setupTestRouter creates a test Gin router with rate limiter keyed by client IP
func setupTestRouter(redisClient *redis.Client, config *RateLimiterConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(RateLimiterMiddleware(redisClient, config, ClientIPKey("test")))

	router.POST("/auth/login", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return router
}

func postFrom(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = ip + ":12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowRequestsUnderLimit(t *testing.T) {
	redisClient := setupTestRedis(t)
	defer redisClient.Close()

	router := setupTestRouter(redisClient, &RateLimiterConfig{Capacity: 5, RefillRate: 10.0})

	for i := 0; i < 5; i++ {
		w := postFrom(router, "10.0.0.1")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}
}

func TestRateLimiter_DenyRequestsOverLimit(t *testing.T) {
	redisClient := setupTestRedis(t)
	defer redisClient.Close()

	router := setupTestRouter(redisClient, &RateLimiterConfig{Capacity: 3, RefillRate: 0.5})

	for i := 0; i < 3; i++ {
		w := postFrom(router, "10.0.0.2")
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := postFrom(router, "10.0.0.2")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "Request should be rate limited")
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestRateLimiter_TokenRefill(t *testing.T) {
	redisClient := setupTestRedis(t)
	defer redisClient.Close()

	router := setupTestRouter(redisClient, &RateLimiterConfig{Capacity: 2, RefillRate: 2.0})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, postFrom(router, "10.0.0.3").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, postFrom(router, "10.0.0.3").Code)

	// 2 tokens per second: one token is back after 500ms
	time.Sleep(600 * time.Millisecond)

	assert.Equal(t, http.StatusOK, postFrom(router, "10.0.0.3").Code, "Request should succeed after token refill")
}

func TestRateLimiter_DifferentClients(t *testing.T) {
	redisClient := setupTestRedis(t)
	defer redisClient.Close()

	router := setupTestRouter(redisClient, &RateLimiterConfig{Capacity: 2, RefillRate: 0.5})

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, postFrom(router, "10.0.0.4").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, postFrom(router, "10.0.0.4").Code)

	assert.Equal(t, http.StatusOK, postFrom(router, "10.0.0.5").Code,
		"a second client must not be affected by the first client's bucket")
}

func TestRateLimiter_RedisFailure_FailOpen(t *testing.T) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:        "localhost:9999", // Non-existent Redis
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer redisClient.Close()

	router := setupTestRouter(redisClient, &RateLimiterConfig{Capacity: 1, RefillRate: 0.1})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, postFrom(router, "10.0.0.6").Code)
	}
}

func TestRateLimiter_EmptyKeySkips(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	// a nil client would panic if the limiter tried to use it
	router.Use(RateLimiterMiddleware(nil, StrictRateLimiter(), func(*gin.Context) string { return "" }))
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientRateLimiterKey(t *testing.T) {
	tests := []struct {
		name     string
		scope    string
		ip       string
		expected string
	}{
		{name: "login ipv4", scope: "login", ip: "192.0.2.1", expected: "rate_limiter:login:ip:192.0.2.1"},
		{name: "register ipv6", scope: "register", ip: "2001:db8::1", expected: "rate_limiter:register:ip:2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClientRateLimiterKey(tt.scope, tt.ip))
		})
	}
}

func TestRateLimiterPresets(t *testing.T) {
	def := DefaultRateLimiterConfig()
	require.NotNil(t, def)
	assert.Equal(t, 20, def.Capacity)
	assert.Equal(t, 10.0, def.RefillRate)

	strict := StrictRateLimiter()
	assert.Equal(t, 5, strict.Capacity)
	assert.Equal(t, 0.1, strict.RefillRate)

	custom := CustomRateLimiter(7, 3.5)
	assert.Equal(t, 7, custom.Capacity)
	assert.Equal(t, 3.5, custom.RefillRate)
}
