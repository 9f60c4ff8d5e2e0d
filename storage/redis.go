package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations. All store calls are expected to
// complete or fail within the ambient request timeout; no retries happen
// inside a request.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int

	// KeyPrefix namespaces every key, e.g. "bbauth:".
	KeyPrefix string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStore implements Store on a Redis backend. Redis DEL reports the
// number of removed keys, which makes Delete's existed report atomic and
// closes the double-redemption window of a plain read-then-delete.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// NewRedisStoreWithClient wraps a pre-configured client. Used by tests with
// miniredis.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := s.client.Del(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("redis del %q: %w", key, err)
	}
	return removed > 0, nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.keyPrefix+prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(s.keyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", prefix, err)
	}
	return keys, nil
}

func (s *RedisStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, s.keyPrefix+key)
	pttl := pipe.PTTL(ctx, s.keyPrefix+key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("redis incr %q: %w", key, err)
	}

	count := incr.Val()
	remaining := pttl.Val()
	if remaining < 0 {
		// PTTL is negative until the expiry is set on the fresh counter.
		remaining = ttl
		if ttl > 0 {
			if err := s.client.Expire(ctx, s.keyPrefix+key, ttl).Err(); err != nil {
				return 0, 0, fmt.Errorf("redis expire %q: %w", key, err)
			}
		}
	}
	return count, remaining, nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
