package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RedisRateLimiterStore is a fixed-window counter shared by every API
// instance. It implements echo's RateLimiterStore. When Redis cannot be
// reached the request is let through and a warning is logged.
type RedisRateLimiterStore struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
	now    func() time.Time
	log    *zap.Logger
}

func NewRedisRateLimiterStore(client *redis.Client, limit int, window time.Duration, logger *zap.Logger) *RedisRateLimiterStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRateLimiterStore{
		client: client,
		limit:  int64(limit),
		window: window,
		prefix: "ratelimit:",
		now:    time.Now,
		log:    logger,
	}
}

func (s *RedisRateLimiterStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	bucket := s.now().UnixNano() / int64(s.window)
	key := fmt.Sprintf("%s%s:%d", s.prefix, identifier, bucket)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("rate limiter store unavailable, allowing request",
			zap.String("identifier", identifier), zap.Error(err))
		return true, nil
	}
	return incr.Val() <= s.limit, nil
}

// RateLimiter limits requests per client IP. With a nil client it falls back
// to echo's in-memory store, which only covers this process.
func RateLimiter(client *redis.Client, perMinute int, logger *zap.Logger) echo.MiddlewareFunc {
	var store echomw.RateLimiterStore
	if client != nil {
		store = NewRedisRateLimiterStore(client, perMinute, time.Minute, logger)
	} else {
		store = echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(perMinute) / 60),
			Burst:     perMinute,
			ExpiresIn: 3 * time.Minute,
		})
	}
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "unable to identify client"})
		},
	})
}
