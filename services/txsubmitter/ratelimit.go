package txsubmitter

import (
	"sync"

	"golang.org/x/time/rate"
)

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimitConfig bounds how fast batches reach the chain.
type RateLimitConfig struct {
	// GlobalTPS is the sustained submissions per second across all kinds.
	GlobalTPS float64
	Burst     int
	// PerKindTPS caps individual kinds (for example "admin") below the global rate.
	PerKindTPS map[string]float64
}

// DefaultRateLimitConfig returns conservative limits for a single signing account.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		GlobalTPS: 2,
		Burst:     4,
		PerKindTPS: map[string]float64{
			KindAdmin: 0.2,
		},
	}
}

// RateLimiter combines a global bucket with optional per-kind buckets.
type RateLimiter struct {
	mu     sync.Mutex
	global *rate.Limiter
	kinds  map[string]*rate.Limiter
	config RateLimitConfig
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.GlobalTPS <= 0 {
		cfg.GlobalTPS = DefaultRateLimitConfig().GlobalTPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	rl := &RateLimiter{
		global: rate.NewLimiter(rate.Limit(cfg.GlobalTPS), cfg.Burst),
		kinds:  make(map[string]*rate.Limiter),
		config: cfg,
	}
	for kind, tps := range cfg.PerKindTPS {
		rl.kinds[kind] = rate.NewLimiter(rate.Limit(tps), 1)
	}
	return rl
}

// Allow reports whether a submission of kind may proceed now and consumes a token if so.
// A per-kind refusal does not consume a global token.
func (rl *RateLimiter) Allow(kind string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.kinds[kind]; ok {
		r := limiter.Reserve()
		if !r.OK() || r.Delay() > 0 {
			r.Cancel()
			return false
		}
		if !rl.global.Allow() {
			r.Cancel()
			return false
		}
		return true
	}
	return rl.global.Allow()
}

// Status returns the current token availability.
func (rl *RateLimiter) Status() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	kinds := make(map[string]float64, len(rl.kinds))
	for kind, limiter := range rl.kinds {
		kinds[kind] = limiter.Tokens()
	}
	return map[string]any{
		"global_available": rl.global.Tokens(),
		"global_tps":       rl.config.GlobalTPS,
		"kinds":            kinds,
	}
}
