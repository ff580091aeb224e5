package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"taller/internal/core/apperror"
	"taller/internal/core/tenant"
	"taller/pkg/logger"
)

// RateLimitConfig builds a limiter. Rate uses the limiter format, "10-M" is
// ten requests per minute. Counters live in Redis when a client is given so
// every server instance shares them.
type RateLimitConfig struct {
	Rate   string
	Prefix string
	Redis  *redis.Client
	// Key picks the bucket; client IP when nil.
	Key func(c *gin.Context) string
}

// RateLimit fails with RATE_LIMITED once the bucket is exhausted.
func RateLimit(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", cfg.Rate, err)
	}

	opts := limiter.StoreOptions{Prefix: cfg.Prefix}
	var store limiter.Store
	if cfg.Redis != nil {
		if store, err = sredis.NewStoreWithOptions(cfg.Redis, opts); err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(opts)
	}

	key := cfg.Key
	if key == nil {
		key = func(c *gin.Context) string { return c.ClientIP() }
	}

	return mgin.NewMiddleware(limiter.New(store, rate),
		mgin.WithKeyGetter(key),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			_ = c.Error(apperror.NewRateLimited().WithDetail("limit", cfg.Rate))
			c.Abort()
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// Limiter failures never block traffic.
			logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
		}),
	), nil
}

// TenantKey buckets by tenant and falls back to the client IP.
func TenantKey(c *gin.Context) string {
	if id := tenant.GetTenantID(c.Request.Context()); id != "" {
		return "tenant:" + id
	}
	return "ip:" + c.ClientIP()
}
