package archive

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds the request budget for the archive.
type RateLimitConfig struct {
	// Requests is the number of requests allowed per Window.
	Requests int

	// Window is the length of the budget window.
	Window time.Duration
}

// DefaultRateLimit is the archive's published fair-access budget.
var DefaultRateLimit = RateLimitConfig{Requests: 5, Window: time.Second}

// RateLimiter spaces requests evenly so no window exceeds the budget.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a rate limiter for cfg. Burst is one so requests
// are spread across the window instead of front-loaded.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		cfg = DefaultRateLimit
	}
	every := cfg.Window / time.Duration(cfg.Requests)
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

// Wait blocks until a request can be made without exceeding the budget.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
