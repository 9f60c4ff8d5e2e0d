// Package ratelimit implements a fixed-window request limiter backed by the
// key-value store, so all instances sharing a store share the budget.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/flexio/bbauth/storage"
)

// Defaults: 60 requests per identifier per minute.
const (
	DefaultLimit  = 60
	DefaultWindow = time.Minute
)

// Result describes the outcome of a rate-limit check.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64

	// RetryAfter is the time left in the identifier's current window. Only
	// set when the request was denied.
	RetryAfter time.Duration

	// ResetAt is when the identifier's window expires and its budget
	// returns to Limit.
	ResetAt time.Time
}

// Limiter counts requests per identifier in fixed windows. The counter key
// carries the window TTL, so windows reset by expiry rather than by a
// stored reset timestamp; the store reports the remaining window alongside
// each increment.
type Limiter struct {
	store   storage.Store
	limit   int64
	window  time.Duration
	nowFunc func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLimit sets the allowed request count per window.
func WithLimit(limit int64) Option {
	return func(l *Limiter) {
		l.limit = limit
	}
}

// WithWindow sets the window duration.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		l.window = window
	}
}

// WithNowFunc sets the clock used to compute ResetAt.
func WithNowFunc(now func() time.Time) Option {
	return func(l *Limiter) {
		l.nowFunc = now
	}
}

// New creates a limiter over the store.
func New(store storage.Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, limit: DefaultLimit, window: DefaultWindow, nowFunc: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts a request against the identifier's current window.
func (l *Limiter) Check(ctx context.Context, identifier string) (*Result, error) {
	count, windowLeft, err := l.store.Incr(ctx, storage.RateLimitKey(identifier), l.window)
	if err != nil {
		return nil, errors.Wrap(err, "[Check] store.Incr")
	}

	result := &Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: l.limit - count,
		ResetAt:   l.nowFunc().Add(windowLeft),
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !result.Allowed {
		result.RetryAfter = windowLeft
	}
	return result, nil
}

// ClientIdentifier extracts the caller identity for rate limiting. Proxy
// headers take precedence over the socket address, matching a deployment
// behind a CDN or load balancer.
func ClientIdentifier(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
