// Package storage abstracts the key-value store backing all cross-request
// state: sessions, authorization codes, refresh tokens, rate-limit counters
// and the client/provider registries. The store offers per-key atomic get,
// put and delete with a per-key TTL; there are no multi-key transactions.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or has expired. Callers
// cannot distinguish the two cases; that is intentional and mirrors the
// OAuth practice of hiding record state from enumeration.
var ErrNotFound = errors.New("storage: key not found")

// Store is a key-value store with per-key TTL. Keys are composite strings
// such as "session:{id}" (see the Key* helpers). Values are opaque bytes;
// the repositories layered on top serialize records as JSON.
type Store interface {
	// Get returns the value at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key. A zero ttl means the key never expires.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key and reports whether it existed. The returned
	// boolean is the single-use guard for sessions and authorization codes:
	// of two concurrent consumers of the same key, exactly one observes
	// true. Implementations must make the remove-and-report step atomic.
	Delete(ctx context.Context, key string) (bool, error)

	// List returns every key with the given prefix. Used only by the
	// admin registry list operations; not on the hot path.
	List(ctx context.Context, prefix string) ([]string, error)

	// Incr atomically increments the integer counter at key and returns the
	// new value plus the time remaining until the counter expires. The ttl
	// is applied when the counter is created. Used by the rate limiter; the
	// counter expires with its window and the remaining time feeds the
	// Retry-After and reset headers.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// Key patterns. Every record type owns a prefix so registries can list by
// prefix and operators can reason about the keyspace.
const (
	KeyPrefixClient    = "client:"
	KeyPrefixProvider  = "provider:"
	KeyPrefixSession   = "session:"
	KeyPrefixAuthCode  = "authcode:"
	KeyPrefixRefresh   = "refresh:"
	KeyPrefixRateLimit = "ratelimit:"
)

// ClientKey returns the store key for an OAuth client record.
func ClientKey(clientID string) string { return KeyPrefixClient + clientID }

// ProviderKey returns the store key for an identity provider record.
func ProviderKey(providerID string) string { return KeyPrefixProvider + providerID }

// SessionKey returns the store key for an authorization session.
func SessionKey(sessionID string) string { return KeyPrefixSession + sessionID }

// AuthCodeKey returns the store key for a one-time authorization code.
func AuthCodeKey(code string) string { return KeyPrefixAuthCode + code }

// RefreshTokenKey returns the store key for a refresh token record.
func RefreshTokenKey(token string) string { return KeyPrefixRefresh + token }

// RateLimitKey returns the store key for a rate-limit counter.
func RateLimitKey(identifier string) string { return KeyPrefixRateLimit + identifier }
