// Package middleware provides HTTP middleware shared by the API server.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/folioworks/folio/pkg/auth"
	"github.com/folioworks/folio/pkg/httputil"
)

// Config bounds the write rate for one class of caller.
type Config struct {
	// Limit is the number of tokens refilled per window.
	Limit int
	// Window is the refill period.
	Window time.Duration
	// Burst is extra headroom above the steady rate.
	Burst int
}

// IdentifiedDefaults returns the write budget for identified profiles.
func IdentifiedDefaults() Config {
	return Config{Limit: 300, Window: time.Minute, Burst: 30}
}

// AnonymousDefaults returns the write budget for anonymous callers,
// keyed by client address.
func AnonymousDefaults() Config {
	return Config{Limit: 60, Window: time.Minute, Burst: 10}
}

// Limiter is a token-bucket rate limiter with one bucket per key.
type Limiter struct {
	config Config

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewLimiter creates a limiter. A zero Limit disables it: every call to
// Allow succeeds.
func NewLimiter(config Config) *Limiter {
	return &Limiter{
		config:  config,
		buckets: make(map[string]*bucket),
	}
}

func (l *Limiter) capacity() int {
	return l.config.Limit + l.config.Burst
}

// Allow consumes one token for key, reporting whether the request may
// proceed.
func (l *Limiter) Allow(key string) bool {
	if l.config.Limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity(), lastRefill: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill)
	refill := int(elapsed.Seconds() * float64(l.config.Limit) / l.config.Window.Seconds())
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity() {
			b.tokens = l.capacity()
		}
		b.lastRefill = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Remaining reports the tokens left for key without consuming one.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		return l.capacity()
	}
	return b.tokens
}

// Cleanup drops buckets idle for more than two windows.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-2 * l.config.Window)
	for key, b := range l.buckets {
		if b.lastRefill.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// StartCleanup runs Cleanup once per window until ctx is cancelled.
func (l *Limiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(l.config.Window)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// WriteLimiter rate-limits mutating requests per subject. Reads pass
// through untouched, and superusers are exempt so admin tooling and the
// sweeper are never throttled.
type WriteLimiter struct {
	identified *Limiter
	anonymous  *Limiter
}

// NewWriteLimiter creates the middleware with one budget for identified
// profiles and a tighter one for anonymous callers.
func NewWriteLimiter(identified, anonymous Config) *WriteLimiter {
	return &WriteLimiter{
		identified: NewLimiter(identified),
		anonymous:  NewLimiter(anonymous),
	}
}

// StartCleanup starts the bucket janitors for both tiers.
func (m *WriteLimiter) StartCleanup(ctx context.Context) {
	m.identified.StartCleanup(ctx)
	m.anonymous.StartCleanup(ctx)
}

// Handler wraps next with write rate limiting. It must run after the
// actor middleware so the subject is already resolved.
func (m *WriteLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		sub := auth.SubjectFrom(r.Context())
		if sub.IsSuperuser() {
			next.ServeHTTP(w, r)
			return
		}

		var key string
		var limiter *Limiter
		if sub.IsAnonymous() {
			key = "addr:" + clientAddr(r)
			limiter = m.anonymous
		} else {
			key = "profile:" + strconv.FormatInt(sub.ProfileID, 10)
			limiter = m.identified
		}

		if !limiter.Allow(key) {
			setRateHeaders(w, limiter, 0)
			w.Header().Set("Retry-After", strconv.Itoa(int(limiter.config.Window.Seconds())))
			httputil.WriteTooManyRequests(w, "rate limit exceeded")
			return
		}

		setRateHeaders(w, limiter, limiter.Remaining(key))
		next.ServeHTTP(w, r)
	})
}

func setRateHeaders(w http.ResponseWriter, l *Limiter, remaining int) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.config.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(l.config.Window).Unix(), 10))
}

// clientAddr resolves the caller's address, honoring proxy headers.
func clientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
