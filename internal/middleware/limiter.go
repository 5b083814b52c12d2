package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Payment initialization (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// Status checks, records, sessions (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Navigation events arrive in bursts while the page loads
	limitNavigation = rate.Limit(50)
	burstNavigation = 100

	visitorTTL = 3 * time.Minute
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller and tier.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// getVisitor retrieves or creates a rate limiter for the given key.
func (rl *RateLimiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		rl.visitors[key] = &visitor{limiter, rl.now()}
		return limiter
	}

	v.lastSeen = rl.now()
	return v.limiter
}

// Cleanup removes visitors idle for longer than visitorTTL.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, key)
		}
	}
}

// Run calls Cleanup every minute until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}

// Middleware rejects requests over their tier quota with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)
		key := identity(r) + ":" + tier

		if !rl.getVisitor(key, limit, burst).Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// identity prefers the device header over the IP. The limiter runs before
// auth so rejected tokens still count against the caller.
func identity(r *http.Request) string {
	if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
		return "device:" + deviceID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// resolveRateTier determines which rate limit policy applies to the request.
func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	if r.Method == http.MethodPost && r.URL.Path == "/payments" {
		return limitStrict, burstStrict, "strict"
	}
	if strings.HasPrefix(r.URL.Path, "/sessions/") && strings.HasSuffix(r.URL.Path, "/navigation") {
		return limitNavigation, burstNavigation, "navigation"
	}
	return limitGeneral, burstGeneral, "general"
}
