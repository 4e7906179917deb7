package middleware

import (
	"net/http"
	apperrors "petsit/pkg/errors"
	"petsit/pkg/logger"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type KeyExtractor func(r *http.Request) string

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ActorRateLimiter keeps a token bucket per key. Idle buckets are evicted.
type ActorRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	extract  KeyExtractor
	log      *logger.Logger
	stopCh   chan struct{}
	once     sync.Once
}

// NewActorRateLimiter allows requests events per window for each key.
func NewActorRateLimiter(requests int, window time.Duration, extract KeyExtractor, log *logger.Logger) *ActorRateLimiter {
	if extract == nil {
		extract = ActorKey
	}

	rl := &ActorRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		idleTTL:  max(window, time.Minute) * 3,
		extract:  extract,
		log:      log,
		stopCh:   make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *ActorRateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow()
}

func (rl *ActorRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if time.Since(v.lastSeen) > rl.idleTTL {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *ActorRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stopCh) })
}

// RateLimit throttles requests accepted by match (all requests when nil).
func RateLimit(limiter *ActorRateLimiter, match func(r *http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if match != nil && !match(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := limiter.extract(r)
			if !limiter.Allow(key) {
				limiter.log.Warn("Rate limit exceeded",
					"request_id", requestIDFrom(r),
					"key", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "60")
				writeAppError(w, apperrors.New("RATE_LIMITED", "Rate limit exceeded", http.StatusTooManyRequests))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func ActorKey(r *http.Request) string {
	return r.Header.Get(HeaderActorID)
}
