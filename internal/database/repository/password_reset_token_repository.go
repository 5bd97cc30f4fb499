package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/academichub/backend-go/internal/database/models"
)

// PasswordResetTokenRepository defines the interface for password reset token operations
type PasswordResetTokenRepository interface {
	// CreateSuperseding marks the user's unused, unexpired tokens used and inserts
	// the new one in a single transaction. It returns the number of superseded tokens.
	CreateSuperseding(ctx context.Context, token *models.PasswordResetToken, now time.Time) (int64, error)
	FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	// Consume flips used on a still-valid token and stores the new password hash
	// for its user atomically. ErrTokenNotConsumable means another caller won.
	Consume(ctx context.Context, token string, passwordHash string, now time.Time) error
	DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error)
}

type passwordResetTokenRepository struct {
	db *gorm.DB
}

func NewPasswordResetTokenRepository(db *gorm.DB) PasswordResetTokenRepository {
	return &passwordResetTokenRepository{db: db}
}

func (r *passwordResetTokenRepository) CreateSuperseding(ctx context.Context, token *models.PasswordResetToken, now time.Time) (int64, error) {
	var superseded int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize concurrent requests for the same user on the user row
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", token.UserID).
			First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		result := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND used = ? AND expires_at >= ?", token.UserID, false, now).
			Update("used", true)
		if result.Error != nil {
			return result.Error
		}
		superseded = result.RowsAffected

		return tx.Create(token).Error
	})
	return superseded, err
}

func (r *passwordResetTokenRepository) FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var resetToken models.PasswordResetToken
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&resetToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &resetToken, nil
}

func (r *passwordResetTokenRepository) Consume(ctx context.Context, token string, passwordHash string, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var resetToken models.PasswordResetToken
		if err := tx.Where("token = ?", token).First(&resetToken).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTokenNotFound
			}
			return err
		}

		// Compare-and-set on used: only one concurrent consumer can win
		result := tx.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used = ? AND expires_at >= ?", resetToken.ID, false, now).
			Update("used", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrTokenNotConsumable
		}

		result = tx.Model(&models.User{}).
			Where("id = ?", resetToken.UserID).
			Update("password_hash", passwordHash)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// DeleteExpiredUnused removes tokens that expired without being used; used tokens are kept
func (r *passwordResetTokenRepository) DeleteExpiredUnused(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? AND used = ?", now, false).
		Delete(&models.PasswordResetToken{})
	return result.RowsAffected, result.Error
}

var (
	ErrTokenNotConsumable = errors.New("token already used or expired")
)
