package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/database"
)

// Admin credentials seeded by WithSeedData.
const (
	AdminEmail    = "admin@growcoach.test"
	AdminPassword = "Admin1234"
)

// TestDBOption customises the behaviour of MustOpenTestDB.
type TestDBOption func(*testDBConfig)

type testDBConfig struct {
	autoMigrate bool
	seedData    bool
}

// WithAutoMigrate enables automatic schema migration after opening the test database.
func WithAutoMigrate() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
	}
}

// WithSeedData applies migrations and seeds the test administrator.
func WithSeedData() TestDBOption {
	return func(cfg *testDBConfig) {
		cfg.autoMigrate = true
		cfg.seedData = true
	}
}

// MustOpenTestDB opens a private in-memory SQLite database for the test. Each
// call gets its own named database so parallel tests never share rows.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	cfg := testDBConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := database.Open(database.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	switch {
	case cfg.seedData:
		require.NoError(t, database.AutoMigrateAndSeed(context.Background(), db, database.AdminSeed{
			Email:    AdminEmail,
			Password: AdminPassword,
		}))
	case cfg.autoMigrate:
		require.NoError(t, database.AutoMigrate(db))
	}

	return db
}
