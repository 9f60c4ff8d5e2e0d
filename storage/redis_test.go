package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flexio/bbauth/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*storage.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return storage.NewRedisStoreWithClient(client, "bbauth:"), mr
}

func TestRedisStorePutGetDelete(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "session:abc", []byte(`{"id":"abc"}`), 10*time.Minute))

	value, err := store.Get(ctx, "session:abc")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"id":"abc"}`), value)

	existed, err := store.Delete(ctx, "session:abc")
	require.NoError(t, err)
	require.True(t, existed)

	_, err = store.Get(ctx, "session:abc")
	require.ErrorIs(t, err, storage.ErrNotFound)

	existed, err = store.Delete(ctx, "session:abc")
	require.NoError(t, err)
	require.False(t, existed)
}

func TestRedisStoreTTL(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "authcode:x", []byte("v"), 10*time.Minute))

	mr.FastForward(11 * time.Minute)

	_, err := store.Get(ctx, "authcode:x")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "client:c1", []byte("v"), 0))
	require.True(t, mr.Exists("bbauth:client:c1"))
}

func TestRedisStoreList(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "client:a", []byte("1"), 0))
	require.NoError(t, store.Put(ctx, "client:b", []byte("2"), 0))
	require.NoError(t, store.Put(ctx, "refresh:r", []byte("3"), 0))

	keys, err := store.List(ctx, "client:")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"client:a", "client:b"}, keys)
}

func TestRedisStoreIncr(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		count, remaining, err := store.Incr(ctx, "ratelimit:ip", time.Minute)
		require.NoError(t, err)
		require.Equal(t, i, count)
		require.Greater(t, remaining, time.Duration(0))
		require.LessOrEqual(t, remaining, time.Minute)
	}

	mr.FastForward(30 * time.Second)
	_, remaining, err := store.Incr(ctx, "ratelimit:ip", time.Minute)
	require.NoError(t, err)
	require.LessOrEqual(t, remaining, 30*time.Second)

	mr.FastForward(2 * time.Minute)

	count, remaining, err := store.Incr(ctx, "ratelimit:ip", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, time.Minute, remaining)
}
