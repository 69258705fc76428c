package middleware

import (
	"context"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER MIDDLEWARE
// Per-user token bucket. Repeat offenders are muted for a while.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the refill rate per user.
	RequestsPerMinute int

	// BurstSize is the bucket capacity.
	BurstSize int

	// CleanupInterval is how often idle buckets and expired bans are dropped.
	CleanupInterval time.Duration

	// BanDuration is how long repeat offenders are muted.
	BanDuration time.Duration

	// BanThreshold is the number of violations within five minutes that
	// triggers a ban.
	BanThreshold int
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         10,
		CleanupInterval:   5 * time.Minute,
		BanDuration:       5 * time.Minute,
		BanThreshold:      5,
	}
}

// RateLimiter implements per-user rate limiting.
type RateLimiter struct {
	config  RateLimitConfig
	buckets sync.Map // map[int64]*tokenBucket
	bans    sync.Map // map[int64]time.Time (expiry)
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

type tokenBucket struct {
	mu           sync.Mutex
	tokens       float64
	lastRefill   time.Time
	refillRate   float64 // tokens per second
	maxTokens    float64
	violations   int
	lastViolated time.Time
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
// Call Close to stop the loop.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config: config,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// RateLimitResult represents the result of a rate limit check.
type RateLimitResult struct {
	// Allowed indicates if the request is allowed.
	Allowed bool

	// RetryAfter is how long the user should wait before retrying.
	RetryAfter time.Duration

	// IsBanned indicates if the user is temporarily muted.
	IsBanned bool
}

// Check consumes one token for the user.
// A non-positive RequestsPerMinute disables limiting.
func (rl *RateLimiter) Check(_ context.Context, userID int64) *RateLimitResult {
	if rl.config.RequestsPerMinute <= 0 {
		return &RateLimitResult{Allowed: true}
	}
	now := rl.now()

	if v, ok := rl.bans.Load(userID); ok {
		expires := v.(time.Time)
		if now.Before(expires) {
			return &RateLimitResult{IsBanned: true, RetryAfter: expires.Sub(now)}
		}
		rl.bans.Delete(userID)
	}

	bucket := rl.getBucket(userID, now)
	allowed, retryAfter, violations := bucket.consume(now)
	if allowed {
		return &RateLimitResult{Allowed: true}
	}

	if rl.config.BanThreshold > 0 && violations >= rl.config.BanThreshold {
		rl.bans.Store(userID, now.Add(rl.config.BanDuration))
		return &RateLimitResult{IsBanned: true, RetryAfter: rl.config.BanDuration}
	}
	return &RateLimitResult{RetryAfter: retryAfter}
}

// Reset clears the state of a user.
func (rl *RateLimiter) Reset(userID int64) {
	rl.buckets.Delete(userID)
	rl.bans.Delete(userID)
}

// Close stops the cleanup loop.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) getBucket(userID int64, now time.Time) *tokenBucket {
	if v, ok := rl.buckets.Load(userID); ok {
		return v.(*tokenBucket)
	}
	bucket := &tokenBucket{
		tokens:     float64(rl.config.BurstSize),
		lastRefill: now,
		refillRate: float64(rl.config.RequestsPerMinute) / 60.0,
		maxTokens:  float64(rl.config.BurstSize),
	}
	actual, _ := rl.buckets.LoadOrStore(userID, bucket)
	return actual.(*tokenBucket)
}

// consume takes a token, or records a violation when none is left.
func (b *tokenBucket) consume(now time.Time) (bool, time.Duration, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastRefill).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens--
		return true, 0, b.violations
	}

	if now.Sub(b.lastViolated) > 5*time.Minute {
		b.violations = 0
	}
	b.violations++
	b.lastViolated = now

	retryAfter := time.Second
	if b.refillRate > 0 {
		retryAfter = time.Duration((1.0 - b.tokens) / b.refillRate * float64(time.Second))
	}
	return false, retryAfter, b.violations
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	now := rl.now()
	const idle = 10 * time.Minute

	rl.buckets.Range(func(key, value any) bool {
		b := value.(*tokenBucket)
		b.mu.Lock()
		inactive := now.Sub(b.lastRefill) > idle
		b.mu.Unlock()
		if inactive {
			rl.buckets.Delete(key)
		}
		return true
	})

	rl.bans.Range(func(key, value any) bool {
		if now.After(value.(time.Time)) {
			rl.bans.Delete(key)
		}
		return true
	})
}
