package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Aman-Sigroha/kyc/internal/domain"
)

// RateLimiterConfig holds configuration for per-client rate limiting.
type RateLimiterConfig struct {
	// Max requests per window.
	Max int
	// Window duration.
	Window time.Duration
	// KeyGenerator derives the limiting key from the request; defaults to
	// the client IP.
	KeyGenerator func(c *fiber.Ctx) string
}

// DefaultRateLimiterConfig returns the default configuration.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Max:    120,
		Window: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}
}

// clientLimiter tracks the window state for one client.
type clientLimiter struct {
	count      int
	windowEnd  time.Time
	lastAccess time.Time
}

// RateLimiter implements fixed-window per-client rate limiting. Inference
// endpoints are expensive, so the edge refuses floods before they reach
// the models.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters map[string]*clientLimiter
	mu       sync.Mutex
	done     chan struct{}
}

var errRateLimited = &domain.AppError{
	Code:       "RATE_LIMITED",
	Message:    "Too many requests, please try again later",
	StatusCode: fiber.StatusTooManyRequests,
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Max == 0 {
		config.Max = DefaultRateLimiterConfig().Max
	}
	if config.Window == 0 {
		config.Window = DefaultRateLimiterConfig().Window
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = DefaultRateLimiterConfig().KeyGenerator
	}

	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*clientLimiter),
		done:     make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Stop shuts down the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

// Handler returns the Fiber middleware handler.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rl.config.KeyGenerator(c)
		if key == "" {
			return c.Next()
		}

		now := time.Now()

		rl.mu.Lock()
		limiter, ok := rl.limiters[key]
		if !ok || now.After(limiter.windowEnd) {
			limiter = &clientLimiter{windowEnd: now.Add(rl.config.Window)}
			rl.limiters[key] = limiter
		}
		limiter.count++
		limiter.lastAccess = now
		exceeded := limiter.count > rl.config.Max
		rl.mu.Unlock()

		if exceeded {
			return errRateLimited
		}
		return c.Next()
	}
}

// cleanup evicts limiters idle for more than two windows.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.Window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * rl.config.Window)
			rl.mu.Lock()
			for key, limiter := range rl.limiters {
				if limiter.lastAccess.Before(cutoff) {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
