package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/growcoach/jobboard/internal/database/testutil"
	"github.com/growcoach/jobboard/internal/models"
)

func newDatabaseStore(t *testing.T) (*DatabaseStore, *time.Time) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := NewDatabaseStore(db)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestDatabaseStoreSetGetDelete(t *testing.T) {
	store, _ := newDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v1"), time.Minute))
	require.NoError(t, store.Set(ctx, "k", []byte("v2"), time.Minute))

	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), value)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDatabaseStoreExpiry(t *testing.T) {
	store, now := newDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("v"), time.Second))
	require.NoError(t, store.Set(ctx, "forever", []byte("v"), 0))

	*now = now.Add(2 * time.Second)

	_, ok, err := store.Get(ctx, "short")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = store.Get(ctx, "forever")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDatabaseStoreIncrementWithTTL(t *testing.T) {
	store, now := newDatabaseStore(t)
	ctx := context.Background()

	count, ttl, err := store.IncrementWithTTL(ctx, "ratelimit:register", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, ttl)

	*now = now.Add(10 * time.Second)
	count, ttl, err = store.IncrementWithTTL(ctx, "ratelimit:register", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
	require.Equal(t, 50*time.Second, ttl)

	*now = now.Add(time.Minute)
	count, _, err = store.IncrementWithTTL(ctx, "ratelimit:register", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestDatabaseStorePurgeExpired(t *testing.T) {
	store, now := newDatabaseStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "old", []byte("v"), time.Second))
	require.NoError(t, store.Set(ctx, "fresh", []byte("v"), time.Hour))
	require.NoError(t, store.Set(ctx, "forever", []byte("v"), 0))

	purged, err := store.PurgeExpired(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	var remaining int64
	require.NoError(t, store.db.Model(&models.CacheEntry{}).Count(&remaining).Error)
	require.EqualValues(t, 2, remaining)
}

func TestDatabaseStorePing(t *testing.T) {
	store, _ := newDatabaseStore(t)
	require.NoError(t, store.Ping(context.Background()))

	var nilStore *DatabaseStore
	require.Error(t, nilStore.Ping(context.Background()))
}
