package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/safecheck"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// Rate is requests per second per client. Zero disables limiting.
	Rate float64

	// Burst is the burst size per client.
	Burst int

	// CleanupInterval is how often idle limiters are dropped.
	CleanupInterval time.Duration
}

// RateLimiter limits requests per acting user, falling back to the client
// IP when no identity is attached.
//
// c.RealIP() trusts X-Forwarded-For unless echo's IPExtractor is set;
// configure it for the deployment's proxy setup.
type RateLimiter struct {
	limiters sync.Map // client key -> *limiterEntry
	logger   *slog.Logger
	config   RateLimitConfig
	ctx      context.Context
	cancel   context.CancelFunc
}

// limiterEntry wraps a rate limiter with metadata for cleanup.
// lastAccess is stored as Unix timestamp (int64) for thread-safe atomic access.
type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess atomic.Int64
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
// Call Shutdown to stop it.
func NewRateLimiter(logger *slog.Logger, cfg RateLimitConfig) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.Rate) * 2
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	rl := &RateLimiter{
		logger: logger,
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	go rl.cleanupOldLimiters()

	return rl
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if name := safecheck.UserNameFromContext(c.Request().Context()); name != "" {
				key = "user:" + name
			}

			limit := fmt.Sprintf("%.0f", rl.config.Rate)
			if !rl.getLimiter(key).Allow() {
				rl.logger.Warn("rate limit exceeded",
					slog.String("client", key),
					slog.String("path", c.Path()),
					slog.String("method", c.Request().Method))

				c.Response().Header().Set("Retry-After", "1")
				c.Response().Header().Set("X-RateLimit-Limit", limit)
				c.Response().Header().Set("X-RateLimit-Remaining", "0")

				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}

			c.Response().Header().Set("X-RateLimit-Limit", limit)
			return next(c)
		}
	}
}

// getLimiter gets or creates the limiter for a client key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if entry, exists := rl.limiters.Load(key); exists {
		limEntry := entry.(*limiterEntry)
		limEntry.lastAccess.Store(time.Now().Unix())
		return limEntry.limiter
	}

	entry := &limiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst),
	}
	entry.lastAccess.Store(time.Now().Unix())
	actual, _ := rl.limiters.LoadOrStore(key, entry)
	return actual.(*limiterEntry).limiter
}

// cleanupOldLimiters drops limiters idle for longer than an hour.
func (rl *RateLimiter) cleanupOldLimiters() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	inactivityThreshold := time.Hour

	for {
		select {
		case <-ticker.C:
			var removed int
			currentTime := time.Now().Unix()

			rl.limiters.Range(func(key, value interface{}) bool {
				entry := value.(*limiterEntry)
				if currentTime-entry.lastAccess.Load() > int64(inactivityThreshold.Seconds()) {
					rl.limiters.Delete(key)
					removed++
				}
				return true
			})

			if removed > 0 {
				rl.logger.Info("cleaned up old rate limiters",
					slog.Int("removed", removed))
			}
		case <-rl.ctx.Done():
			rl.logger.Debug("rate limiter cleanup goroutine stopping")
			return
		}
	}
}

// Shutdown stops the cleanup goroutine.
func (rl *RateLimiter) Shutdown() {
	if rl.cancel != nil {
		rl.cancel()
	}
}
