package web

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client address. Buckets idle for
// longer than two windows are dropped on the next sweep.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newClientLimiter allows n requests per window per client, refilled evenly.
func newClientLimiter(n int, window time.Duration) *clientLimiter {
	return &clientLimiter{
		clients:   make(map[string]*clientBucket),
		limit:     rate.Every(window / time.Duration(n)),
		burst:     n,
		idle:      2 * window,
		lastSweep: time.Now(),
	}
}

func (cl *clientLimiter) allow(client string) bool {
	now := time.Now()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if now.Sub(cl.lastSweep) > cl.idle {
		for k, b := range cl.clients {
			if now.Sub(b.lastSeen) > cl.idle {
				delete(cl.clients, k)
			}
		}
		cl.lastSweep = now
	}

	b, ok := cl.clients[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[client] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// middleware rejects requests over the limit with 429. RemoteAddr has
// already been rewritten by TrustedRealIP.
func (cl *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cl.allow(clientIP(r.RemoteAddr)) {
			w.Header().Set("Retry-After", "60")
			writeJSONStatus(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "Too many requests",
				Action:  "Wait a minute and try again",
				Code:    "HTTP429",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
