package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/academichub/backend-go/internal/config"
	"github.com/academichub/backend-go/internal/database/models"
	"github.com/academichub/backend-go/internal/database/repository"
	"github.com/academichub/backend-go/internal/mailer"
	"github.com/academichub/backend-go/internal/metrics"
	"github.com/academichub/backend-go/internal/security"
)

// TokenTypeBearer is the token type reported to clients
const TokenTypeBearer = "Bearer"

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Logout revokes the principal's access token and every refresh token of the user
	Logout(ctx context.Context, principal *security.Principal) error
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error
	InitiatePasswordReset(ctx context.Context, email string) error
	ValidatePasswordResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	RegisterProfessor(ctx context.Context, input RegisterProfessorInput) (*models.UserSummary, error)
	// ResolvePrincipal is the request filter check: signature, expiry and revocation
	ResolvePrincipal(ctx context.Context, accessToken string) (*security.Principal, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.UserSummary, error)
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64 // seconds
}

// LoginResult is returned by a successful Authenticate
type LoginResult struct {
	TokenPair
	User *models.UserSummary
}

// RegisterProfessorInput carries everything needed to create a professor account
type RegisterProfessorInput struct {
	Email             string
	Password          string
	FirstName         string
	LastName          string
	DepartmentID      uuid.UUID
	Title             models.ProfessorTitle
	OfficeLocation    *string
	Phone             *string
	ResearchInterests []string
}

// AuthDeps groups the collaborators of the auth service
type AuthDeps struct {
	Users          repository.UserRepository
	Departments    repository.DepartmentRepository
	Professors     repository.ProfessorRepository
	RefreshTokens  RefreshTokenService
	Revocations    RevocationService
	PasswordResets PasswordResetService
	Codec          *security.TokenCodec
	Hasher         security.PasswordHasher
	Mailer         mailer.Sender
	Metrics        *metrics.Metrics
}

type authService struct {
	AuthDeps
	cfg    *config.Config
	now    func() time.Time
	logger *slog.Logger
}

// NewAuthService creates a new authentication service instance
func NewAuthService(deps AuthDeps, cfg *config.Config, logger *slog.Logger) AuthService {
	return &authService{
		AuthDeps: deps,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *authService) Authenticate(ctx context.Context, email, password string) (result *LoginResult, err error) {
	defer s.observe(metrics.FlowLogin, &err)
	s.logger.Info("🔐 [AuthService] Login attempt", "email", email)

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Same cost and same error as a wrong password
			s.Hasher.VerifyDummy(password)
			s.logger.Warn("⚠️ [AuthService] User not found", "email", email)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, err
	}

	if !s.Hasher.Verify(user.PasswordHash, password) {
		s.logger.Warn("⚠️ [AuthService] Invalid password", "email", email)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.logger.Warn("⚠️ [AuthService] Login to disabled account", "user_id", user.ID)
		return nil, ErrAccountDisabled
	}

	now := s.now()
	if err := s.Users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Error("❌ [AuthService] Failed to update last login", "user_id", user.ID, "error", err)
		return nil, err
	}
	user.LastLogin = &now

	accessToken, err := s.Codec.IssueAccessToken(user.ID, user.Email, user.Role, now)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate access token", "error", err)
		return nil, err
	}

	refreshToken, err := s.RefreshTokens.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("✅ [AuthService] User logged in successfully", "user_id", user.ID)
	return &LoginResult{
		TokenPair: s.tokenPair(accessToken, refreshToken.Token),
		User:      user.Summary(),
	}, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (pair *TokenPair, err error) {
	defer s.observe(metrics.FlowRefresh, &err)
	s.logger.Info("🔄 [AuthService] Token refresh attempt")

	stored, err := s.RefreshTokens.FindByToken(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("⚠️ [AuthService] Refresh token lookup failed", "error", err)
		return nil, err
	}

	if _, err := s.RefreshTokens.VerifyUsable(stored); err != nil {
		s.logger.Warn("⚠️ [AuthService] Refresh token not usable", "user_id", stored.UserID, "error", err)
		return nil, err
	}

	user, err := s.Users.FindByID(ctx, stored.UserID)
	if err != nil {
		s.logger.Error("❌ [AuthService] Refresh token owner lookup failed", "user_id", stored.UserID, "error", err)
		return nil, err
	}
	if !user.IsActive {
		s.logger.Warn("⚠️ [AuthService] Refresh for disabled account", "user_id", user.ID)
		return nil, ErrAccountDisabled
	}

	accessToken, err := s.Codec.IssueAccessToken(user.ID, user.Email, user.Role, s.now())
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate access token", "error", err)
		return nil, err
	}

	// The refresh token is returned unchanged; it is not rotated
	result := s.tokenPair(accessToken, stored.Token)

	s.logger.Info("✅ [AuthService] Token refreshed successfully", "user_id", user.ID)
	return &result, nil
}

func (s *authService) Logout(ctx context.Context, principal *security.Principal) (err error) {
	defer s.observe(metrics.FlowLogout, &err)
	s.logger.Info("👋 [AuthService] Logout attempt", "user_id", principal.UserID)

	if principal.Token != "" {
		if err := s.Revocations.Revoke(ctx, principal.Token, principal.UserID); err != nil {
			return err
		}
	}

	if _, err := s.RefreshTokens.RevokeAllForUser(ctx, principal.UserID); err != nil {
		return err
	}

	s.logger.Info("✅ [AuthService] User logged out successfully", "user_id", principal.UserID)
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) (err error) {
	defer s.observe(metrics.FlowPasswordChange, &err)
	s.logger.Info("🔑 [AuthService] Password change attempt", "user_id", userID)

	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !s.Hasher.Verify(user.PasswordHash, currentPassword) {
		s.logger.Warn("⚠️ [AuthService] Current password mismatch", "user_id", userID)
		return ErrInvalidCredentials
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return err
	}

	if err := s.Users.UpdatePassword(ctx, userID, hash); err != nil {
		s.logger.Error("❌ [AuthService] Failed to store password", "user_id", userID, "error", err)
		return err
	}

	// Sessions opened with the old password must log in again
	if _, err := s.RefreshTokens.RevokeAllForUser(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("✅ [AuthService] Password changed", "user_id", userID)
	return nil
}

func (s *authService) InitiatePasswordReset(ctx context.Context, email string) (err error) {
	defer s.observe(metrics.FlowResetRequest, &err)
	s.logger.Info("📨 [AuthService] Password reset requested", "email", email)

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] Password reset for unknown email", "email", email)
		}
		return err
	}

	token, err := s.PasswordResets.CreateToken(ctx, user.ID)
	if err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordResetEmail(ctx, user.Email, token.Token, token.ExpiresAt); err != nil {
		s.logger.Error("❌ [AuthService] Failed to dispatch reset email", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrEmailDispatch, err)
	}

	s.logger.Info("✅ [AuthService] Password reset email dispatched", "user_id", user.ID)
	return nil
}

func (s *authService) ValidatePasswordResetToken(ctx context.Context, token string) error {
	return s.PasswordResets.ValidateToken(ctx, token)
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) (err error) {
	defer s.observe(metrics.FlowReset, &err)
	return s.PasswordResets.ResetPassword(ctx, token, newPassword)
}

func (s *authService) RegisterProfessor(ctx context.Context, input RegisterProfessorInput) (summary *models.UserSummary, err error) {
	defer s.observe(metrics.FlowRegister, &err)
	s.logger.Info("📝 [AuthService] Professor registration attempt", "email", input.Email)

	exists, err := s.Users.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, err
	}
	if exists {
		s.logger.Warn("⚠️ [AuthService] Email already registered", "email", input.Email)
		return nil, repository.ErrDuplicateEmail
	}

	if _, err := s.Departments.FindByID(ctx, input.DepartmentID); err != nil {
		if errors.Is(err, repository.ErrDepartmentNotFound) {
			s.logger.Warn("⚠️ [AuthService] Department not found", "department_id", input.DepartmentID)
		}
		return nil, err
	}

	if input.Title != "" && !input.Title.Valid() {
		return nil, ErrInvalidProfessorTitle
	}

	hash, err := s.Hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.RoleProfessor,
		IsActive:     true,
	}
	professor := &models.Professor{
		DepartmentID:   input.DepartmentID,
		Title:          input.Title,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		OfficeLocation: input.OfficeLocation,
		Phone:          input.Phone,
	}
	professor.SetResearchInterestsList(input.ResearchInterests)

	// The unique index on email closes the gap between ExistsByEmail and this insert
	if err := s.Professors.CreateWithUser(ctx, user, professor); err != nil {
		s.logger.Error("❌ [AuthService] Failed to create professor", "email", input.Email, "error", err)
		return nil, err
	}

	s.logger.Info("✅ [AuthService] Professor registered", "user_id", user.ID, "professor_id", professor.ID)
	summary = user.Summary()
	summary.Professor = professor.Summary()
	return summary, nil
}

func (s *authService) ResolvePrincipal(ctx context.Context, accessToken string) (*security.Principal, error) {
	if !s.Codec.Validate(accessToken) {
		return nil, security.ErrInvalidToken
	}

	revoked, err := s.Revocations.IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := s.Codec.ParseClaims(accessToken)
	if err != nil {
		return nil, err
	}
	return security.PrincipalFromClaims(claims, accessToken)
}

func (s *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.UserSummary, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	if user.Role != models.RoleProfessor {
		return summary, nil
	}

	professor, err := s.Professors.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrProfessorNotFound) {
			// Accounts created before a profile was attached
			return summary, nil
		}
		return nil, err
	}
	summary.Professor = professor.Summary()
	return summary, nil
}

func (s *authService) tokenPair(accessToken, refreshToken string) TokenPair {
	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.Codec.AccessTTL() / time.Second),
	}
}

// observe records the flow outcome: taxonomy errors count as failures,
// anything else as an internal error
func (s *authService) observe(flow string, err *error) {
	switch {
	case *err == nil:
		s.Metrics.ObserveAuth(flow, metrics.OutcomeSuccess)
	case IsClientError(*err):
		s.Metrics.ObserveAuth(flow, metrics.OutcomeFailure)
	default:
		s.Metrics.ObserveAuth(flow, metrics.OutcomeError)
	}
}

// IsClientError reports whether err belongs to the auth error taxonomy rather
// than an infrastructure failure
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var clientErrors = []error{
	ErrInvalidCredentials,
	ErrAccountDisabled,
	ErrRefreshTokenNotFound,
	ErrRefreshTokenRevoked,
	ErrRefreshTokenExpired,
	ErrResetTokenNotFound,
	ErrResetTokenUsed,
	ErrResetTokenExpired,
	ErrTokenRevoked,
	ErrInvalidProfessorTitle,
	repository.ErrUserNotFound,
	repository.ErrDuplicateEmail,
	repository.ErrDepartmentNotFound,
	repository.ErrProfessorNotFound,
	security.ErrInvalidToken,
	security.ErrMalformedToken,
	security.ErrPasswordTooLong,
}
