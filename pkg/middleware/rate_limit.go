package middleware

import (
	"net/http"
	"sync"
	"time"

	"roomly/pkg/logger"

	"golang.org/x/time/rate"
)

// PrincipalExtractor identifies the caller for rate-limiting purposes.
type PrincipalExtractor func(r *http.Request) string

// DefaultPrincipalExtractor keys on the verified principal header when
// present and falls back to the remote address.
func DefaultPrincipalExtractor(r *http.Request) string {
	if owner := r.Header.Get("X-Owner-ID"); owner != "" {
		return owner
	}
	return r.RemoteAddr
}

// PrincipalRateLimiter keeps one token bucket per principal.
type PrincipalRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*principalEntry
	limit     rate.Limit
	burst     int
	extractor PrincipalExtractor
	log       *logger.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
}

type principalEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewPrincipalRateLimiter(requests int, window time.Duration, extractor PrincipalExtractor, log *logger.Logger) *PrincipalRateLimiter {
	rl := &PrincipalRateLimiter{
		limiters:  make(map[string]*principalEntry),
		limit:     rate.Every(window / time.Duration(requests)),
		burst:     requests,
		extractor: extractor,
		log:       log,
		stopCh:    make(chan struct{}),
	}

	go rl.cleanup(window)

	return rl
}

func (rl *PrincipalRateLimiter) Allow(principal string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[principal]
	if !ok {
		entry = &principalEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[principal] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (rl *PrincipalRateLimiter) cleanup(window time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for principal, entry := range rl.limiters {
				if time.Since(entry.lastSeen) > window {
					delete(rl.limiters, principal)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *PrincipalRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func PrincipalRateLimit(rl *PrincipalRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := rl.extractor(r)
			if !rl.Allow(principal) {
				rl.log.Warn("Rate limit exceeded",
					"request_id", RequestID(r.Context()),
					"principal", principal,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Too many requests"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
