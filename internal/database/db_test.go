package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/pkg/crypto"
)

func TestOpenSQLiteMemory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec("SELECT 1").Error)
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestAutoMigrateCreatesTables(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	for _, table := range []interface{}{
		&models.Account{},
		&models.CandidateProfile{},
		&models.CompanyProfile{},
		&models.Notification{},
		&models.Job{},
		&models.JobApplication{},
		&models.SavedJob{},
		&models.PasswordResetCode{},
		&models.RevokedToken{},
		&models.CacheEntry{},
	} {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
	require.True(t, migrator.HasIndex(&models.Notification{}, "idx_notifications_target_type"))
	require.True(t, migrator.HasIndex(&models.JobApplication{}, "idx_job_applications_job_candidate"))
}

func TestAutoMigrateAndSeedAdminIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	seed := AdminSeed{Email: "Admin@GrowCoach.test", Password: "Admin1234"}

	require.NoError(t, AutoMigrateAndSeed(context.Background(), db, seed))
	require.NoError(t, AutoMigrateAndSeed(context.Background(), db, AdminSeed{Email: seed.Email, Password: "Other1234"}))

	var admins []models.Account
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).Find(&admins).Error)
	require.Len(t, admins, 1)
	require.Equal(t, "admin@growcoach.test", admins[0].Email)
	require.Equal(t, models.StatusActive, admins[0].Status)
	require.True(t, crypto.VerifyPassword(admins[0].Password, "Admin1234"))
}

func TestSeedAdminSkipsWithoutEmail(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, AutoMigrate(db))
	require.NoError(t, SeedAdmin(context.Background(), db, AdminSeed{}))

	var count int64
	require.NoError(t, db.Model(&models.Account{}).Count(&count).Error)
	require.Zero(t, count)

	require.Error(t, SeedAdmin(context.Background(), db, AdminSeed{Email: "admin@growcoach.test"}))
}

func TestPingReportsDriverFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mock.ExpectPing()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection reset"))
	require.ErrorContains(t, Ping(context.Background(), db), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPingNilHandle(t *testing.T) {
	require.Error(t, Ping(context.Background(), nil))
}

func TestParseLogLevel(t *testing.T) {
	require.NotEqual(t, parseLogLevel("silent"), parseLogLevel("info"))
	require.Equal(t, parseLogLevel(""), parseLogLevel("bogus"))
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := Open(Config{Driver: "sqlite", DSN: "file:" + t.Name() + "?mode=memory&cache=shared&_foreign_keys=1"})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
