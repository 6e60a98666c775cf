package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/growcoach/jobboard/internal/cache"
	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/pkg/logger"
)

const revokedKeyPrefix = "revoked:"

// TokenDenylist tracks logged out tokens by jti. The database is the source of
// truth; the cache answers the hot path.
type TokenDenylist struct {
	db    *gorm.DB
	cache cache.Store
	now   func() time.Time
	log   *zap.Logger
}

// NewTokenDenylist builds a denylist. The cache is optional.
func NewTokenDenylist(db *gorm.DB, store cache.Store) (*TokenDenylist, error) {
	if db == nil {
		return nil, errors.New("token denylist: db is required")
	}
	return &TokenDenylist{
		db:    db,
		cache: store,
		now:   func() time.Time { return time.Now().UTC() },
		log:   logger.WithModule("auth"),
	}, nil
}

// Revoke denies the token until its natural expiry.
func (d *TokenDenylist) Revoke(ctx context.Context, jti, accountID string, expiresAt time.Time) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return errors.New("token denylist: jti is required")
	}
	if expiresAt.IsZero() {
		expiresAt = d.now().Add(DefaultAccessTokenTTL)
	}

	record := models.RevokedToken{JTI: jti, AccountID: accountID, ExpiresAt: expiresAt.UTC()}
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record).Error; err != nil {
		return fmt.Errorf("token denylist: revoke: %w", err)
	}

	if d.cache != nil {
		if ttl := expiresAt.Sub(d.now()); ttl > 0 {
			if err := d.cache.Set(ctx, revokedKeyPrefix+jti, []byte("1"), ttl); err != nil {
				d.log.Warn("failed to cache revoked token", zap.Error(err))
			}
		}
	}
	return nil
}

// IsRevoked reports whether the jti was revoked. A cache failure falls back
// to the database.
func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, nil
	}

	if d.cache != nil {
		if _, ok, err := d.cache.Get(ctx, revokedKeyPrefix+jti); err == nil && ok {
			return true, nil
		} else if err != nil {
			d.log.Warn("revoked token cache lookup failed", zap.Error(err))
		}
	}

	var count int64
	err := d.db.WithContext(ctx).
		Model(&models.RevokedToken{}).
		Where("jti = ? AND expires_at > ?", jti, d.now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("token denylist: lookup: %w", err)
	}
	return count > 0, nil
}

// PurgeExpired removes entries for tokens that can no longer validate anyway.
func (d *TokenDenylist) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := d.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&models.RevokedToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("token denylist: purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}
