package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/pkg/crypto"
)

// AdminSeed describes the administrator account created on start-up.
type AdminSeed struct {
	Email    string
	Password string
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
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
	)
}

// SeedAdmin creates the configured administrator if no account uses its
// email yet. Existing accounts are left untouched.
func SeedAdmin(ctx context.Context, db *gorm.DB, seed AdminSeed) error {
	email := models.NormaliseEmail(seed.Email)
	if email == "" {
		return nil
	}
	if strings.TrimSpace(seed.Password) == "" {
		return errors.New("admin password is required when admin email is set")
	}

	hash, err := crypto.HashPassword(seed.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.Account{
		Email:         email,
		Password:      hash,
		Role:          models.RoleAdmin,
		Status:        models.StatusActive,
		Verified:      true,
		TermsAccepted: true,
		AuthProvider:  models.AuthProviderLocal,
	}
	return db.WithContext(ctx).
		Where(models.Account{Email: email}).
		Attrs(admin).
		FirstOrCreate(&models.Account{}).Error
}
