package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/academichub/backend-go/internal/database"
	"github.com/academichub/backend-go/internal/database/models"
	"github.com/academichub/backend-go/internal/database/repository"
	"github.com/academichub/backend-go/internal/logger"
	"github.com/academichub/backend-go/internal/metrics"
	"github.com/academichub/backend-go/internal/security"
)

// RevocationService is the ledger of access tokens invalidated before their natural expiry
type RevocationService interface {
	// Revoke records the token with the expiry copied from its own exp claim.
	// It fails with security.ErrInvalidToken when the token cannot be parsed.
	Revoke(ctx context.Context, token string, userID uuid.UUID) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type revocationService struct {
	repo    repository.RevokedTokenRepository
	cache   database.RevocationCache
	codec   *security.TokenCodec
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// NewRevocationService creates the ledger. cache and m may be nil.
func NewRevocationService(
	repo repository.RevokedTokenRepository,
	cache database.RevocationCache,
	codec *security.TokenCodec,
	m *metrics.Metrics,
	logger *slog.Logger,
) RevocationService {
	return &revocationService{
		repo:    repo,
		cache:   cache,
		codec:   codec,
		metrics: m,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *revocationService) Revoke(ctx context.Context, token string, userID uuid.UUID) error {
	expiresAt, err := s.codec.ExpiresAt(token)
	if err != nil {
		s.logger.Warn("⚠️ [RevocationService] Refusing to revoke unparsable token", "user_id", userID, "error", err)
		return err
	}

	record := &models.RevokedToken{
		Token:     token,
		TokenHash: models.HashToken(token),
		UserID:    userID,
		ExpiresAt: expiresAt,
		RevokedAt: s.now(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("❌ [RevocationService] Failed to record revoked token", "user_id", userID, "error", err)
		return err
	}

	if s.cache != nil {
		if err := s.cache.MarkRevoked(ctx, record.TokenHash, expiresAt.Sub(s.now())); err != nil {
			s.logger.Warn("⚠️ [RevocationService] Cache update failed, ledger is still authoritative", "error", err)
		}
	}

	s.logger.Info("🚫 [RevocationService] Access token revoked",
		"user_id", userID,
		"token", logger.TokenPrefix(token),
		"expires_at", expiresAt,
	)
	return nil
}

func (s *revocationService) IsRevoked(ctx context.Context, token string) (bool, error) {
	hash := models.HashToken(token)

	if s.cache != nil {
		hit, err := s.cache.IsRevoked(ctx, hash)
		if err != nil {
			s.logger.Warn("⚠️ [RevocationService] Cache lookup failed, using database", "error", err)
		} else if hit {
			s.metrics.ObserveRevocationCheck("cache", true)
			return true, nil
		}
	}

	revoked, err := s.repo.ExistsByHash(ctx, hash)
	if err != nil {
		s.logger.Error("❌ [RevocationService] Revocation lookup failed", "error", err)
		return false, err
	}
	s.metrics.ObserveRevocationCheck("database", revoked)
	return revoked, nil
}

func (s *revocationService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
