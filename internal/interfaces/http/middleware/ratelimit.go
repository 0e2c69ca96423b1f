package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/donation/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateCounter counts requests per key in fixed windows
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// RateLimitConfig configures one rate limit
type RateLimitConfig struct {
	// Name prefixes the counter key so separate limits never share a window
	Name   string
	Limit  int
	Window time.Duration
	// KeyFunc identifies the caller. Defaults to the client IP.
	KeyFunc func(*gin.Context) string
	Logger  *zap.Logger
}

// RateLimit rejects callers that exceed cfg.Limit requests per cfg.Window
// with 429 and a Retry-After header. A failing counter lets the request
// through.
func RateLimit(counter RateCounter, cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	limit := strconv.Itoa(cfg.Limit)

	return func(c *gin.Context) {
		if cfg.Limit <= 0 || counter == nil {
			c.Next()
			return
		}

		key := cfg.Name + ":" + cfg.KeyFunc(c)
		count, resetIn, err := counter.Hit(c.Request.Context(), key, cfg.Window)
		if err != nil {
			cfg.Logger.Warn("Rate limit check failed, allowing request",
				zap.String("limit", cfg.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		remaining := max(int64(cfg.Limit)-count, 0)
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Limit) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(resetIn.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many requests, please try again later",
				GetRequestID(c),
			))
			return
		}
		c.Next()
	}
}
