package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/duel/config"
	"github.com/use-agent/duel/models"
)

const (
	idleLimiterTTL   = time.Hour
	limiterSweepTick = 5 * time.Minute
)

// bucket is one caller's token bucket.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// callerBuckets hands out a token bucket per caller and forgets callers
// idle for longer than idleLimiterTTL.
type callerBuckets struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucket
}

func newCallerBuckets(cfg config.RateLimitConfig) *callerBuckets {
	return &callerBuckets{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		buckets: make(map[string]*bucket),
	}
}

// reserve takes a token for caller at now. A zero delay means the request
// may proceed; otherwise the reservation is cancelled and the delay says
// when a token will be available.
func (cb *callerBuckets) reserve(caller string, now time.Time) time.Duration {
	cb.mu.Lock()
	b, ok := cb.buckets[caller]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(cb.limit, cb.burst)}
		cb.buckets[caller] = b
	}
	b.lastSeen = now
	cb.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return idleLimiterTTL
	}
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
	}
	return delay
}

func (cb *callerBuckets) sweep(cutoff time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	for caller, b := range cb.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(cb.buckets, caller)
		}
	}
}

func (cb *callerBuckets) sweepLoop() {
	ticker := time.NewTicker(limiterSweepTick)
	defer ticker.Stop()
	for now := range ticker.C {
		cb.sweep(now.Add(-idleLimiterTTL))
	}
}

// RateLimit limits each caller to a token bucket. The caller is the API key
// stored by Auth, or the client IP when auth is off. Rejected requests get
// 429 with a Retry-After header in whole seconds.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	buckets := newCallerBuckets(cfg)
	go buckets.sweepLoop()

	return func(c *gin.Context) {
		caller := c.GetString(apiKeyContextKey)
		if caller == "" {
			caller = c.ClientIP()
		}

		if delay := buckets.reserve(caller, time.Now()); delay > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			abort(c, http.StatusTooManyRequests, models.ErrCodeRateLimited,
				"rate limit exceeded, retry later")
			return
		}
		c.Next()
	}
}
