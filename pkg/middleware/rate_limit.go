package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/mo-amir99/course-platform-go/pkg/cache"
	"github.com/mo-amir99/course-platform-go/pkg/response"
)

// RateLimiter counts requests per client IP in fixed windows stored in the cache,
// so limits are shared between API replicas. If the cache is unreachable it falls
// back to a per-process token bucket.
type RateLimiter struct {
	store    cache.Client
	limit    int
	window   time.Duration
	logger   *slog.Logger
	mu       sync.Mutex
	fallback map[string]*rate.Limiter
}

// NewRateLimiter allows limit requests per window for each client.
func NewRateLimiter(store cache.Client, limit int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if window < time.Second {
		window = time.Second
	}
	return &RateLimiter{
		store:    store,
		limit:    limit,
		window:   window,
		logger:   logger,
		fallback: make(map[string]*rate.Limiter),
	}
}

// Middleware returns a Gin middleware that enforces rate limiting.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		key := c.ClientIP()
		allowed, remaining := rl.allow(c, key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) allow(c *gin.Context, key string) (bool, int) {
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/int64(rl.window.Seconds()))

	count, err := rl.store.IncrementWindow(c.Request.Context(), windowKey, rl.window)
	if err != nil {
		rl.logger.Warn("rate limit store unavailable, using local limiter", slog.Any("error", err))
		return rl.allowLocal(key), 0
	}

	remaining := rl.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return count <= int64(rl.limit), remaining
}

func (rl *RateLimiter) allowLocal(key string) bool {
	rl.mu.Lock()
	limiter, ok := rl.fallback[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit)
		rl.fallback[key] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}
