package middlewares

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"shop-service/logger"
)

type Tier struct {
	Name   string
	Limit  int
	Window time.Duration
}

var (
	TierStrict   = Tier{Name: "strict", Limit: 3, Window: time.Second}
	TierModerate = Tier{Name: "moderate", Limit: 5, Window: time.Second}
	TierRelaxed  = Tier{Name: "relaxed", Limit: 20, Window: time.Second}
)

// RateLimiter is a fixed-window request counter per tier and client IP kept
// in Redis. A nil RateLimiter lets everything through.
type RateLimiter struct {
	client *redis.Client
	log    *logger.Logger
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client, log *logger.Logger) *RateLimiter {
	return &RateLimiter{client: client, log: log, now: time.Now}
}

func (rl *RateLimiter) Limit(t Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.client == nil {
			c.Next()
			return
		}

		window := rl.now().UnixNano() / int64(t.Window)
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		// One bucket per tier, route and client IP in each window.
		key := fmt.Sprintf("ratelimit:%s:%s:%s:%d", t.Name, route, c.ClientIP(), window)

		ctx := c.Request.Context()
		pipe := rl.client.TxPipeline()
		count := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, t.Window)
		if _, err := pipe.Exec(ctx); err != nil {
			// Fail open when Redis is unreachable.
			rl.log.Warn("rate limiter unavailable", "tier", t.Name, "error", err)
			c.Next()
			return
		}

		remaining := t.Limit - int(count.Val())
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(t.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count.Val() > int64(t.Limit) {
			rateLimited.WithLabelValues(t.Name).Inc()
			c.Header("Retry-After", strconv.Itoa(int(t.Window.Seconds()+0.5)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
