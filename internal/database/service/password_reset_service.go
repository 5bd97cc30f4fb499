package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/academichub/backend-go/internal/config"
	"github.com/academichub/backend-go/internal/database/models"
	"github.com/academichub/backend-go/internal/database/repository"
	"github.com/academichub/backend-go/internal/logger"
	"github.com/academichub/backend-go/internal/security"
)

// PasswordResetService owns the single-use reset token lifecycle:
// Active -> Used, either by consumption or by a newer token superseding it
type PasswordResetService interface {
	CreateToken(ctx context.Context, userID uuid.UUID) (*models.PasswordResetToken, error)
	ValidateToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type passwordResetService struct {
	repo   repository.PasswordResetTokenRepository
	hasher security.PasswordHasher
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewPasswordResetService creates a new password reset service instance
func NewPasswordResetService(
	repo repository.PasswordResetTokenRepository,
	hasher security.PasswordHasher,
	cfg *config.Config,
	logger *slog.Logger,
) PasswordResetService {
	return &passwordResetService{
		repo:   repo,
		hasher: hasher,
		ttl:    cfg.PasswordResetTokenTTL(),
		now:    time.Now,
		logger: logger,
	}
}

func (s *passwordResetService) CreateToken(ctx context.Context, userID uuid.UUID) (*models.PasswordResetToken, error) {
	now := s.now()
	token := &models.PasswordResetToken{
		Token:     security.NewOpaqueToken(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
	}

	superseded, err := s.repo.CreateSuperseding(ctx, token, now)
	if err != nil {
		s.logger.Error("❌ [PasswordResetService] Failed to create reset token", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("🔑 [PasswordResetService] Reset token created",
		"user_id", userID,
		"token", logger.TokenPrefix(token.Token),
		"superseded", superseded,
	)
	return token, nil
}

func (s *passwordResetService) ValidateToken(ctx context.Context, token string) error {
	_, err := s.usableToken(ctx, token)
	return err
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	resetToken, err := s.usableToken(ctx, token)
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("❌ [PasswordResetService] Failed to hash password", "error", err)
		return err
	}

	// Re-checked atomically: a concurrent reset or the clock may have won since usableToken
	if err := s.repo.Consume(ctx, token, hash, s.now()); err != nil {
		if errors.Is(err, repository.ErrTokenNotConsumable) {
			return s.classify(ctx, token)
		}
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrResetTokenNotFound
		}
		s.logger.Error("❌ [PasswordResetService] Failed to consume reset token", "error", err)
		return err
	}

	s.logger.Info("✅ [PasswordResetService] Password reset", "user_id", resetToken.UserID)
	return nil
}

func (s *passwordResetService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	deleted, err := s.repo.DeleteExpiredUnused(ctx, s.now())
	if err != nil {
		s.logger.Error("❌ [PasswordResetService] Cleanup failed", "error", err)
		return 0, err
	}
	s.logger.Info("🧹 [PasswordResetService] Expired reset tokens removed", "count", deleted)
	return deleted, nil
}

// usableToken applies the checks in order: existence, used, expiry
func (s *passwordResetService) usableToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	resetToken, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrResetTokenNotFound
		}
		return nil, err
	}
	if resetToken.Used {
		return nil, ErrResetTokenUsed
	}
	if resetToken.IsExpired(s.now()) {
		return nil, ErrResetTokenExpired
	}
	return resetToken, nil
}

// classify explains why a consume lost the compare-and-set
func (s *passwordResetService) classify(ctx context.Context, token string) error {
	if _, err := s.usableToken(ctx, token); err != nil {
		return err
	}
	return ErrResetTokenUsed
}
