package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/MO-RISE/crowsnest/internal/config"
)

// RateLimitConfig holds the configuration for the login rate limiter
type RateLimitConfig struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration // only for the memory store

	StoreType string // config.RateLimitStoreMemory or config.RateLimitStoreRedis

	// Redis settings (only used for the redis store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewLoginRateLimiter creates the rate limiter guarding the login
// endpoint against credential stuffing. The store backend is memory for a
// single gateway instance or redis when the gateway runs replicated.
func NewLoginRateLimiter(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  int64(cfg.RequestsPerMinute),
	}

	var store limiter.Store
	var err error

	switch cfg.StoreType {
	case config.RateLimitStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.RedisAddr, err)
		}

		store, err = limiterRedis.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:          "crowsnest:ratelimit",
			CleanUpInterval: cfg.CleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}

	case config.RateLimitStoreMemory:
		fallthrough
	default:
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate)

	middleware := mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"detail": "Too many login attempts. Please try again later.",
		})
		c.Abort()
	}))

	return middleware, nil
}

// NewMemoryLoginRateLimiter creates an in-memory login rate limiter
func NewMemoryLoginRateLimiter(requestsPerMinute int) (gin.HandlerFunc, error) {
	return NewLoginRateLimiter(RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		StoreType:         config.RateLimitStoreMemory,
		CleanupInterval:   5 * time.Minute,
	})
}
