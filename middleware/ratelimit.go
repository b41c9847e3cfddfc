// middleware/ratelimit.go - Per-client token bucket limiting
package middleware

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket

	maxRequests   int
	windowSeconds int
}

func newRateLimiter(maxRequests, windowSeconds int) *rateLimiter {
	rl := &rateLimiter{
		buckets:       make(map[string]*tokenBucket),
		maxRequests:   maxRequests,
		windowSeconds: windowSeconds,
	}
	go rl.sweep()
	return rl
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &tokenBucket{
			tokens:     float64(rl.maxRequests),
			maxTokens:  float64(rl.maxRequests),
			refillRate: float64(rl.maxRequests) / float64(rl.windowSeconds),
			lastRefill: time.Now(),
		}
		rl.buckets[key] = bucket
	}
	rl.mu.Unlock()
	return bucket.allow()
}

// sweep drops buckets idle long enough to be full again.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-time.Duration(rl.windowSeconds) * time.Second)
		rl.mu.Lock()
		for key, bucket := range rl.buckets {
			bucket.mu.Lock()
			idle := bucket.lastRefill.Before(cutoff)
			bucket.mu.Unlock()
			if idle {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

var (
	generalLimiter *rateLimiter
	authLimiter    *rateLimiter
	limiterOnce    sync.Once
)

func initLimiters() {
	generalMax := envInt("RATE_LIMIT_MAX_REQUESTS", 300)
	generalWindow := envInt("RATE_LIMIT_WINDOW_SECONDS", 60)
	authMax := envInt("AUTH_RATE_LIMIT_MAX", 10)
	authWindow := envInt("AUTH_RATE_LIMIT_WINDOW_SECONDS", 300)

	generalLimiter = newRateLimiter(generalMax, generalWindow)
	authLimiter = newRateLimiter(authMax, authWindow)
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// RateLimitMiddleware applies the general per-IP limit.
func RateLimitMiddleware() fiber.Handler {
	limiterOnce.Do(initLimiters)
	return func(c *fiber.Ctx) error {
		if !generalLimiter.allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, slow down",
			})
		}
		return c.Next()
	}
}

// AuthRateLimitMiddleware applies the stricter limit for login/register.
func AuthRateLimitMiddleware() fiber.Handler {
	limiterOnce.Do(initLimiters)
	return func(c *fiber.Ctx) error {
		if !authLimiter.allow(c.IP()) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many authentication attempts, try again later",
			})
		}
		return c.Next()
	}
}
