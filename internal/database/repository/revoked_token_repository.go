package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/academichub/backend-go/internal/database/models"
)

// RevokedTokenRepository persists the revocation ledger
type RevokedTokenRepository interface {
	// Create inserts the record; revoking the same token twice is a no-op
	Create(ctx context.Context, token *models.RevokedToken) error
	ExistsByHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type revokedTokenRepository struct {
	db *gorm.DB
}

func NewRevokedTokenRepository(db *gorm.DB) RevokedTokenRepository {
	return &revokedTokenRepository{db: db}
}

func (r *revokedTokenRepository) Create(ctx context.Context, token *models.RevokedToken) error {
	if token.TokenHash == "" {
		token.TokenHash = models.HashToken(token.Token)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_hash"}}, DoNothing: true}).
		Create(token).Error
}

func (r *revokedTokenRepository) ExistsByHash(ctx context.Context, tokenHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("token_hash = ?", tokenHash).
		Count(&count).Error
	return count > 0, err
}

// DeleteExpired removes ledger rows whose copied expiry has passed; those tokens
// already fail signature-time validation
func (r *revokedTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.RevokedToken{})
	return result.RowsAffected, result.Error
}
