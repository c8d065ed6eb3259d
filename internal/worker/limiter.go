package worker

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles scoring calls per provider endpoint.
// Endpoints are keyed by URL host, or by the raw string when it is not a URL.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. requestsPerSecond <= 0 disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until endpoint may be called or ctx ends
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	if l == nil {
		return nil
	}
	return l.getLimiter(endpointKey(endpoint)).Wait(ctx)
}

// Allow checks if a call is allowed without waiting
func (l *Limiter) Allow(endpoint string) bool {
	if l == nil {
		return true
	}
	return l.getLimiter(endpointKey(endpoint)).Allow()
}

func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[key] = limiter

	return limiter
}

// SetEndpointRate sets a custom rate limit for one endpoint
func (l *Limiter) SetEndpointRate(endpoint string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[endpointKey(endpoint)] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func endpointKey(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return strings.ToLower(parsed.Host)
	}
	return strings.ToLower(endpoint)
}
