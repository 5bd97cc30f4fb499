package service

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/academichub/backend-go/internal/config"
	"github.com/academichub/backend-go/internal/database"
	"github.com/academichub/backend-go/internal/database/models"
	"github.com/academichub/backend-go/internal/database/repository"
	"github.com/academichub/backend-go/internal/metrics"
	"github.com/academichub/backend-go/internal/security"
	"github.com/academichub/backend-go/internal/testutil"
)

// fixture wires every service against an in-memory database
type fixture struct {
	db          *gorm.DB
	cfg         *config.Config
	codec       *security.TokenCodec
	hasher      security.PasswordHasher
	refresh     RefreshTokenService
	revocations RevocationService
	resets      PasswordResetService
	sender      *testutil.RecordingSender
	metrics     *metrics.Metrics
	auth        AuthService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithCache(t, nil)
}

func newFixtureWithCache(t *testing.T, cache database.RevocationCache) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.TestConfig()
	log := testutil.TestLogger()

	f := &fixture{
		db:      db,
		cfg:     cfg,
		codec:   security.NewTokenCodec(cfg),
		hasher:  security.NewBcryptHasher(int(cfg.BcryptCost)),
		sender:  &testutil.RecordingSender{},
		metrics: metrics.NewMetrics(prometheus.NewRegistry()),
	}

	f.refresh = NewRefreshTokenService(repository.NewRefreshTokenRepository(db), cfg, log)
	f.revocations = NewRevocationService(repository.NewRevokedTokenRepository(db), cache, f.codec, f.metrics, log)
	f.resets = NewPasswordResetService(repository.NewPasswordResetTokenRepository(db), f.hasher, cfg, log)
	f.auth = NewAuthService(AuthDeps{
		Users:          repository.NewUserRepository(db),
		Departments:    repository.NewDepartmentRepository(db),
		Professors:     repository.NewProfessorRepository(db),
		RefreshTokens:  f.refresh,
		Revocations:    f.revocations,
		PasswordResets: f.resets,
		Codec:          f.codec,
		Hasher:         f.hasher,
		Mailer:         f.sender,
		Metrics:        f.metrics,
	}, cfg, log)

	return f
}

func (f *fixture) createUser(t *testing.T, email, password string, role models.Role) *models.User {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return testutil.CreateUser(t, f.db, email, hash, role)
}

func (f *fixture) refreshTokens(t *testing.T, user *models.User) []models.RefreshToken {
	t.Helper()

	var tokens []models.RefreshToken
	require.NoError(t, f.db.Where("user_id = ?", user.ID).Find(&tokens).Error)
	return tokens
}
