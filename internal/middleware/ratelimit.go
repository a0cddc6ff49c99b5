package middleware

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.limiters[key]; ok {
		return l
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[key] = l
	return l
}

// path suffixes that should be rate limited; the api may sit under a prefix
var limited = []string{
	"/fisioterapista/login",
	"/fisioterapista/register",
	"/fisioterapista/refreshToken",
}

func limitKey(path string) (string, bool) {
	for _, suffix := range limited {
		if strings.HasSuffix(path, suffix) {
			return suffix, true
		}
	}
	return "", false
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// RateLimit delays requests to the token endpoints so a misbehaving caller
// cannot hammer login. Other paths pass straight through. A cancelled
// context while waiting aborts the request.
func RateLimit(rl *RateLimiter, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if rl == nil {
			return next.RoundTrip(r)
		}
		key, ok := limitKey(r.URL.Path)
		if !ok {
			return next.RoundTrip(r)
		}
		if err := rl.get(key).Wait(r.Context()); err != nil {
			return nil, err
		}
		return next.RoundTrip(r)
	})
}
