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

// RefreshTokenService manages long-lived opaque refresh tokens
type RefreshTokenService interface {
	// Create issues a fresh token; existing sessions of the user stay valid
	Create(ctx context.Context, userID uuid.UUID) (*models.RefreshToken, error)
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	// VerifyUsable checks revocation before expiry
	VerifyUsable(token *models.RefreshToken) (*models.RefreshToken, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type refreshTokenService struct {
	repo   repository.RefreshTokenRepository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewRefreshTokenService creates a new refresh token service instance
func NewRefreshTokenService(repo repository.RefreshTokenRepository, cfg *config.Config, logger *slog.Logger) RefreshTokenService {
	return &refreshTokenService{
		repo:   repo,
		ttl:    cfg.RefreshTokenTTL(),
		now:    time.Now,
		logger: logger,
	}
}

func (s *refreshTokenService) Create(ctx context.Context, userID uuid.UUID) (*models.RefreshToken, error) {
	token := &models.RefreshToken{
		UserID:    userID,
		Token:     security.NewOpaqueToken(),
		ExpiresAt: s.now().Add(s.ttl),
	}

	if err := s.repo.Create(ctx, token); err != nil {
		s.logger.Error("❌ [RefreshTokenService] Failed to store refresh token", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Debug("🎟️ [RefreshTokenService] Refresh token issued",
		"user_id", userID,
		"token", logger.TokenPrefix(token.Token),
		"expires_at", token.ExpiresAt,
	)
	return token, nil
}

func (s *refreshTokenService) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	stored, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, err
	}
	return stored, nil
}

func (s *refreshTokenService) VerifyUsable(token *models.RefreshToken) (*models.RefreshToken, error) {
	if token.IsRevoked {
		return nil, ErrRefreshTokenRevoked
	}
	if token.IsExpired(s.now()) {
		return nil, ErrRefreshTokenExpired
	}
	return token, nil
}

func (s *refreshTokenService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.RevokeAllUserTokens(ctx, userID)
	if err != nil {
		s.logger.Error("❌ [RefreshTokenService] Failed to revoke refresh tokens", "user_id", userID, "error", err)
		return 0, err
	}

	s.logger.Info("🚫 [RefreshTokenService] Refresh tokens revoked", "user_id", userID, "count", count)
	return count, nil
}

func (s *refreshTokenService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredTokens(ctx, s.now())
}
