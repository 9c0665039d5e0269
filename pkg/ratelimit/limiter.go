// Package ratelimit throttles the HTTP transport per caller with token
// buckets held in a bounded LRU map.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/frousselet/unifi-mcp/pkg/auth"
	"github.com/frousselet/unifi-mcp/pkg/httperr"
)

const DefaultMaxKeys = 10_000

type Limiter struct {
	mu       sync.Mutex // serializes lookup-then-insert
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// New allows perSecond requests per key with a burst of twice that. A
// non-positive perSecond disables limiting.
func New(perSecond, maxKeys int) *Limiter {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	cache, _ := lru.New[string, *rate.Limiter](maxKeys) // only fails for size <= 0
	return &Limiter{
		limiters: cache,
		limit:    rate.Limit(perSecond),
		burst:    perSecond * 2,
	}
}

// Allow consumes one token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(key, lim)
	}
	return lim.Allow()
}

// Len reports how many keys are tracked.
func (l *Limiter) Len() int {
	return l.limiters.Len()
}

// Middleware rejects requests whose key has run out of tokens.
func (l *Limiter) Middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(keyFn(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				httperr.RateLimited(1).WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CallerOrIP keys on the authenticated caller, falling back to the remote
// address when the request is anonymous.
func CallerOrIP(r *http.Request) string {
	if c := auth.CallerFromContext(r.Context()); c != auth.Anonymous {
		return "caller:" + c
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
