package checks_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/cache"
	"github.com/growcoach/jobboard/internal/monitoring"
	"github.com/growcoach/jobboard/internal/monitoring/checks"
)

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return db, mock
}

func TestDatabaseCheck(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	check := checks.Database(db)
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)

	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
	require.Contains(t, result.Details, "connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseCheckWithoutHandle(t *testing.T) {
	result := checks.Database(nil).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, result.Status)
}

func TestCacheCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	check := checks.Cache("redis", cache.NewRedisStoreWithClient(client))
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)

	mr.Close()
	require.Equal(t, monitoring.StatusDegraded, check.Run(context.Background()).Status)

	require.Equal(t, monitoring.StatusUp, checks.Cache("cache", nil).Run(context.Background()).Status)
}

func TestUploadDirCheck(t *testing.T) {
	dir := t.TempDir()
	require.Equal(t, monitoring.StatusUp, checks.UploadDir(dir).Run(context.Background()).Status)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)

	missing := filepath.Join(dir, "missing")
	require.Equal(t, monitoring.StatusDown, checks.UploadDir(missing).Run(context.Background()).Status)
}

func TestMaintenanceCheck(t *testing.T) {
	tracker := monitoring.NewMaintenanceTracker()
	check := checks.Maintenance(tracker, 0)

	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)

	tracker.Register("revoked_tokens")
	tracker.Record("reset_codes", 2, nil)
	result = check.Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "revoked_tokens: pending first run")

	tracker.Record("revoked_tokens", 0, errors.New("timeout"))
	result = check.Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Contains(t, result.Details, "timeout")
}
