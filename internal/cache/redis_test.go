package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), RedisConfig{Address: server.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, server
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	store, server := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "revoked:abc", []byte("1"), time.Minute))
	require.True(t, server.Exists("growcoach:revoked:abc"))

	value, ok, err := store.Get(ctx, "revoked:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("1"), value)

	require.NoError(t, store.Delete(ctx, "revoked:abc"))
	_, ok, err = store.Get(ctx, "revoked:abc")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, server := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Second))
	server.FastForward(2 * time.Second)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStoreIncrementWithTTL(t *testing.T) {
	store, server := newMiniredisStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "ratelimit:login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Greater(t, ttl, time.Duration(0))

	count, _, err = store.IncrementWithTTL(ctx, "ratelimit:login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	server.FastForward(61 * time.Second)
	count, _, err = store.IncrementWithTTL(ctx, "ratelimit:login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestNewRedisStoreRequiresAddress(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{})
	require.Error(t, err)
}

func TestNewRedisStoreFailsWhenUnreachable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := NewRedisStore(context.Background(), RedisConfig{Address: addr, Timeout: 200 * time.Millisecond})
	require.Error(t, err)
}

func TestRedisStoreIncrementCommands(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client)

	mock.ExpectIncr("growcoach:counter").SetVal(1)
	mock.ExpectPExpire("growcoach:counter", time.Minute).SetVal(true)
	mock.ExpectPTTL("growcoach:counter").SetVal(time.Minute)

	count, ttl, err := store.IncrementWithTTL(context.Background(), "counter", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStoreSurfacesErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStoreWithClient(client)

	mock.ExpectGet("growcoach:k").SetErr(errors.New("READONLY"))
	_, _, err := store.Get(context.Background(), "k")
	require.ErrorContains(t, err, "READONLY")

	mock.ExpectGet("growcoach:missing").RedisNil()
	_, ok, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, ok)

	mock.ExpectPing().SetErr(redis.ErrClosed)
	require.Error(t, store.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrefixed(t *testing.T) {
	require.Equal(t, "growcoach:a", prefixed("a"))
	require.Equal(t, "growcoach:a", prefixed("growcoach:a"))
}
