package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/growcoach/jobboard/internal/cache"
	"github.com/growcoach/jobboard/internal/database/testutil"
	"github.com/growcoach/jobboard/internal/models"
)

func newDenylist(t *testing.T, withCache bool) (*TokenDenylist, *time.Time) {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	var store cache.Store
	if withCache {
		store = cache.NewDatabaseStore(db)
	}
	denylist, err := NewTokenDenylist(db, store)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	denylist.now = func() time.Time { return now }
	return denylist, &now
}

func TestTokenDenylistRevokeAndCheck(t *testing.T) {
	for _, withCache := range []bool{false, true} {
		denylist, now := newDenylist(t, withCache)
		ctx := context.Background()

		revoked, err := denylist.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		require.False(t, revoked)

		require.NoError(t, denylist.Revoke(ctx, "jti-1", "acc-1", now.Add(time.Hour)))
		require.NoError(t, denylist.Revoke(ctx, "jti-1", "acc-1", now.Add(time.Hour)))

		revoked, err = denylist.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		require.True(t, revoked)

		revoked, err = denylist.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		require.False(t, revoked)
	}
}

func TestTokenDenylistRequiresJTI(t *testing.T) {
	denylist, now := newDenylist(t, false)
	require.Error(t, denylist.Revoke(context.Background(), " ", "acc-1", now.Add(time.Hour)))
}

func TestTokenDenylistPurgeExpired(t *testing.T) {
	denylist, now := newDenylist(t, false)
	ctx := context.Background()

	require.NoError(t, denylist.Revoke(ctx, "old", "acc-1", now.Add(time.Minute)))
	require.NoError(t, denylist.Revoke(ctx, "fresh", "acc-1", now.Add(time.Hour)))

	purged, err := denylist.PurgeExpired(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	var remaining []models.RevokedToken
	require.NoError(t, denylist.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, "fresh", remaining[0].JTI)
}
