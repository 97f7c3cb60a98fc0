package middleware

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/testforge/suite-service/internal/auth"
)

// DefaultRequestsPerMinute is used when no limit is configured
const DefaultRequestsPerMinute = 120

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerUserRateLimiter keeps one token bucket per signed-in user. The burst
// equals the per-minute limit.
type PerUserRateLimiter struct {
	limiters      map[uuid.UUID]*userLimiter
	mu            sync.Mutex
	perMinute     int
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
	maxIdleTime   time.Duration
	now           func() time.Time
}

// NewPerUserRateLimiter creates a limiter allowing requestsPerMinute per user
func NewPerUserRateLimiter(requestsPerMinute int) *PerUserRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	limiter := &PerUserRateLimiter{
		limiters:    make(map[uuid.UUID]*userLimiter),
		perMinute:   requestsPerMinute,
		stopCleanup: make(chan struct{}),
		maxIdleTime: 10 * time.Minute,
		now:         time.Now,
	}

	limiter.cleanupTicker = time.NewTicker(5 * time.Minute)
	go limiter.cleanupRoutine()

	return limiter
}

// cleanupRoutine removes limiters of users that have been idle
func (rl *PerUserRateLimiter) cleanupRoutine() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *PerUserRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for userID, l := range rl.limiters {
		if now.Sub(l.lastSeen) > rl.maxIdleTime {
			delete(rl.limiters, userID)
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *PerUserRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTicker.Stop()
		close(rl.stopCleanup)
	})
}

// Allow reports whether a request of userID may proceed and consumes a
// token if so
func (rl *PerUserRateLimiter) Allow(userID uuid.UUID) bool {
	rl.mu.Lock()
	now := rl.now()
	l, exists := rl.limiters[userID]
	if !exists {
		l = &userLimiter{limiter: rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.perMinute)}
		rl.limiters[userID] = l
	}
	l.lastSeen = now
	rl.mu.Unlock()

	return l.limiter.AllowN(now, 1)
}

// RetryAfter is the number of seconds until one token is available again
func (rl *PerUserRateLimiter) RetryAfter() int {
	seconds := 60 / rl.perMinute
	if seconds < 1 {
		return 1
	}
	return seconds
}

// RateLimitMiddleware applies per-user rate limiting to signed-in requests.
// Anonymous requests are not limited here.
func RateLimitMiddleware(limiter *PerUserRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(user.ID) {
				log.Printf("SECURITY: Rate limit exceeded for user %s, IP: %s", user.ID, r.RemoteAddr)
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.perMinute))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(limiter.RetryAfter()))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Rate limit exceeded. Please try again later."}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
