package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/academichub/backend-go/internal/database/models"
	"github.com/academichub/backend-go/internal/database/repository"
	"github.com/academichub/backend-go/internal/metrics"
	"github.com/academichub/backend-go/internal/security"
	"github.com/academichub/backend-go/internal/testutil"
)

// ==================== AUTHENTICATE ====================

func TestAuthService_Authenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleProfessor)

	result, err := f.auth.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	assert.True(t, f.codec.Validate(result.AccessToken))
	subject, err := f.codec.DecodeSubject(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)

	claims, err := f.codec.ParseClaims(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, []string{"ROLE_PROFESSOR"}, claims.Roles)

	assert.Equal(t, TokenTypeBearer, result.TokenType)
	assert.Equal(t, int64(3600), result.ExpiresIn)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, user.ID, result.User.ID)
	require.NotNil(t, result.User.LastLogin)

	var stored models.User
	require.NoError(t, f.db.First(&stored, "id = ?", user.ID).Error)
	require.NotNil(t, stored.LastLogin)

	assert.Equal(t, 1.0, promtest.ToFloat64(f.metrics.AuthOperationsTotal.WithLabelValues(metrics.FlowLogin, metrics.OutcomeSuccess)))
}

func TestAuthService_AuthenticateFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "a@x.com", "nope"},
		{"unknown email", "ghost@x.com", "pw1"},
		{"email case differs", "A@X.COM", "pw1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.auth.Authenticate(ctx, tt.email, tt.password)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())
		})
	}

	var issued int64
	require.NoError(t, f.db.Model(&models.RefreshToken{}).Count(&issued).Error)
	assert.Equal(t, int64(0), issued)
	assert.Equal(t, 3.0, promtest.ToFloat64(f.metrics.AuthOperationsTotal.WithLabelValues(metrics.FlowLogin, metrics.OutcomeFailure)))
}

func TestAuthService_AuthenticateDisabledAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "off@x.com", "pw1", models.RoleStaff)
	require.NoError(t, f.db.Model(user).Update("is_active", false).Error)

	// Wrong password still reports invalid credentials
	_, err := f.auth.Authenticate(ctx, "off@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Authenticate(ctx, "off@x.com", "pw1")
	assert.ErrorIs(t, err, ErrAccountDisabled)
	assert.Empty(t, f.refreshTokens(t, user))
}

func TestAuthService_AuthenticateDatabaseError(t *testing.T) {
	users := &testutil.MockUserRepository{}
	users.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("connection reset"))

	m := metrics.NewMetrics(prometheus.NewRegistry())
	cfg := testutil.TestConfig()
	svc := NewAuthService(AuthDeps{
		Users:   users,
		Hasher:  security.NewBcryptHasher(4),
		Codec:   security.NewTokenCodec(cfg),
		Metrics: m,
	}, cfg, testutil.TestLogger())

	_, err := svc.Authenticate(context.Background(), "a@x.com", "pw")
	assert.EqualError(t, err, "connection reset")
	assert.Equal(t, 1.0, promtest.ToFloat64(m.AuthOperationsTotal.WithLabelValues(metrics.FlowLogin, metrics.OutcomeError)))
	users.AssertExpectations(t)
}

// ==================== REFRESH ====================

func TestAuthService_RefreshReturnsSameRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	login, err := f.auth.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	pair, err := f.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, login.RefreshToken, pair.RefreshToken)
	assert.Equal(t, TokenTypeBearer, pair.TokenType)
	assert.True(t, f.codec.Validate(pair.AccessToken))

	subject, err := f.codec.DecodeSubject(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)
}

func TestAuthService_RefreshEmbedsCurrentRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	login, err := f.auth.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.db.Model(user).Update("role", models.RoleAdmin).Error)

	pair, err := f.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)

	claims, err := f.codec.ParseClaims(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_ADMIN"}, claims.Roles)
}

func TestAuthService_RefreshFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleStaff)
	disabled := f.createUser(t, "off@x.com", "pw1", models.RoleStaff)
	require.NoError(t, f.db.Model(disabled).Update("is_active", false).Error)

	fixtures := []*models.RefreshToken{
		{UserID: user.ID, Token: "revoked", ExpiresAt: time.Now().Add(time.Hour), IsRevoked: true},
		{UserID: user.ID, Token: "expired", ExpiresAt: time.Now().Add(-time.Hour)},
		{UserID: disabled.ID, Token: "disabled", ExpiresAt: time.Now().Add(time.Hour)},
	}
	for _, tok := range fixtures {
		require.NoError(t, f.db.Create(tok).Error)
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"unknown", "missing", ErrRefreshTokenNotFound},
		{"revoked", "revoked", ErrRefreshTokenRevoked},
		{"expired", "expired", ErrRefreshTokenExpired},
		{"disabled owner", "disabled", ErrAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := f.auth.Refresh(ctx, tt.token)
			assert.Nil(t, pair)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ==================== LOGOUT ====================

func TestAuthService_LogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	first, err := f.auth.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	principal, err := f.auth.ResolvePrincipal(ctx, first.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, principal))
	for _, tok := range f.refreshTokens(t, user) {
		assert.True(t, tok.IsRevoked)
	}

	require.NoError(t, f.auth.Logout(ctx, principal))
	for _, tok := range f.refreshTokens(t, user) {
		assert.True(t, tok.IsRevoked)
	}

	revoked, err := f.revocations.IsRevoked(ctx, first.AccessToken)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = f.auth.ResolvePrincipal(ctx, first.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.auth.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestAuthService_LogoutWithoutAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	_, err := f.auth.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, &security.Principal{UserID: user.ID, Role: user.Role}))

	var ledger int64
	require.NoError(t, f.db.Model(&models.RevokedToken{}).Count(&ledger).Error)
	assert.Equal(t, int64(0), ledger)
	for _, tok := range f.refreshTokens(t, user) {
		assert.True(t, tok.IsRevoked)
	}
}

// ==================== CHANGE PASSWORD ====================

func TestAuthService_ChangePasswordRevokesSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	login, err := f.auth.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.auth.ChangePassword(ctx, user.ID, "pw1", "pw2"))

	stored, err := f.refresh.FindByToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	_, err = f.refresh.VerifyUsable(stored)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)

	_, err = f.auth.Authenticate(ctx, "a@x.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.auth.Authenticate(ctx, "a@x.com", "pw2")
	assert.NoError(t, err)
}

func TestAuthService_ChangePasswordFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	login, err := f.auth.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	assert.ErrorIs(t, f.auth.ChangePassword(ctx, user.ID, "wrong", "pw2"), ErrInvalidCredentials)
	assert.ErrorIs(t, f.auth.ChangePassword(ctx, uuid.New(), "pw1", "pw2"), repository.ErrUserNotFound)

	// Nothing was revoked by the failed attempts
	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	assert.NoError(t, err)
}

// ==================== PASSWORD RESET ====================

func TestAuthService_PasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	require.NoError(t, f.auth.InitiatePasswordReset(ctx, "a@x.com"))

	sent, ok := f.sender.Last()
	require.True(t, ok)
	assert.Equal(t, "a@x.com", sent.To)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), sent.ExpiresAt, time.Minute)

	require.NoError(t, f.auth.ValidatePasswordResetToken(ctx, sent.Token))
	require.NoError(t, f.auth.ResetPassword(ctx, sent.Token, "fresh-pw"))
	assert.ErrorIs(t, f.auth.ResetPassword(ctx, sent.Token, "again"), ErrResetTokenUsed)
	assert.ErrorIs(t, f.auth.ValidatePasswordResetToken(ctx, sent.Token), ErrResetTokenUsed)

	_, err := f.auth.Authenticate(ctx, "a@x.com", "fresh-pw")
	assert.NoError(t, err)
}

func TestAuthService_SecondResetRequestSupersedesFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	require.NoError(t, f.auth.InitiatePasswordReset(ctx, "a@x.com"))
	first, _ := f.sender.Last()
	require.NoError(t, f.auth.InitiatePasswordReset(ctx, "a@x.com"))
	second, _ := f.sender.Last()

	assert.ErrorIs(t, f.auth.ValidatePasswordResetToken(ctx, first.Token), ErrResetTokenUsed)
	assert.NoError(t, f.auth.ValidatePasswordResetToken(ctx, second.Token))
}

func TestAuthService_InitiatePasswordResetFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createUser(t, "a@x.com", "pw1", models.RoleStaff)

	assert.ErrorIs(t, f.auth.InitiatePasswordReset(ctx, "ghost@x.com"), repository.ErrUserNotFound)
	assert.Empty(t, f.sender.Sent)

	f.sender.Err = errors.New("smtp down")
	err := f.auth.InitiatePasswordReset(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrEmailDispatch)
}

// ==================== REGISTER PROFESSOR ====================

func TestAuthService_RegisterProfessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	department := testutil.CreateDepartment(t, f.db, "Computer Science")
	office := "B-204"

	summary, err := f.auth.RegisterProfessor(ctx, RegisterProfessorInput{
		Email:             "turing@uni.edu",
		Password:          "enigma",
		FirstName:         "Alan",
		LastName:          "Turing",
		DepartmentID:      department.ID,
		Title:             models.TitleProfessor,
		OfficeLocation:    &office,
		ResearchInterests: []string{"computability", "morphogenesis"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleProfessor, summary.Role)
	assert.True(t, summary.IsActive)

	var professor models.Professor
	require.NoError(t, f.db.Where("user_id = ?", summary.ID).First(&professor).Error)
	assert.Equal(t, department.ID, professor.DepartmentID)
	assert.Equal(t, "computability,morphogenesis", professor.ResearchInterests)
	require.NotNil(t, professor.OfficeLocation)
	assert.Equal(t, "B-204", *professor.OfficeLocation)

	login, err := f.auth.Authenticate(ctx, "turing@uni.edu", "enigma")
	require.NoError(t, err)
	claims, err := f.codec.ParseClaims(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_PROFESSOR"}, claims.Roles)

	require.NotNil(t, summary.Professor)
	assert.Equal(t, "Professor", summary.Professor.TitleDisplayName)

	me, err := f.auth.CurrentUser(ctx, summary.ID)
	require.NoError(t, err)
	require.NotNil(t, me.Professor)
	assert.Equal(t, professor.ID, me.Professor.ID)
	assert.Equal(t, "Alan", me.Professor.FirstName)
	assert.Equal(t, []string{"computability", "morphogenesis"}, me.Professor.ResearchInterests)
}

func TestAuthService_CurrentUser_ProfessorWithoutProfile(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "legacy@uni.edu", "pw", models.RoleProfessor)

	me, err := f.auth.CurrentUser(context.Background(), user.ID)

	require.NoError(t, err)
	assert.Equal(t, "legacy@uni.edu", me.Email)
	assert.Nil(t, me.Professor)
}

func TestAuthService_RegisterProfessorFailuresLeaveNoRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	department := testutil.CreateDepartment(t, f.db, "History")
	f.createUser(t, "taken@uni.edu", "pw", models.RoleStaff)

	base := RegisterProfessorInput{
		Email:        "new@uni.edu",
		Password:     "pw",
		FirstName:    "Ibn",
		LastName:     "Khaldun",
		DepartmentID: department.ID,
	}

	tests := []struct {
		name    string
		modify  func(*RegisterProfessorInput)
		wantErr error
	}{
		{"duplicate email", func(in *RegisterProfessorInput) { in.Email = "taken@uni.edu" }, repository.ErrDuplicateEmail},
		{"unknown department", func(in *RegisterProfessorInput) { in.DepartmentID = uuid.New() }, repository.ErrDepartmentNotFound},
		{"invalid title", func(in *RegisterProfessorInput) { in.Title = "GRAND_WIZARD" }, ErrInvalidProfessorTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base
			tt.modify(&input)

			summary, err := f.auth.RegisterProfessor(ctx, input)
			assert.Nil(t, summary)
			assert.ErrorIs(t, err, tt.wantErr)

			var users, professors int64
			require.NoError(t, f.db.Model(&models.User{}).Count(&users).Error)
			require.NoError(t, f.db.Model(&models.Professor{}).Count(&professors).Error)
			assert.Equal(t, int64(1), users)
			assert.Equal(t, int64(0), professors)
		})
	}
}

// ==================== PRINCIPAL ====================

func TestAuthService_ResolvePrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.createUser(t, "a@x.com", "pw1", models.RoleAdmin)

	login, err := f.auth.Authenticate(ctx, "a@x.com", "pw1")
	require.NoError(t, err)

	principal, err := f.auth.ResolvePrincipal(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, models.RoleAdmin, principal.Role)
	assert.Equal(t, login.AccessToken, principal.Token)

	_, err = f.auth.ResolvePrincipal(ctx, "garbage")
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	// A refresh-style token carries no role and cannot act as a principal
	bare, err := f.codec.IssueRefreshToken(user.ID, time.Now())
	require.NoError(t, err)
	_, err = f.auth.ResolvePrincipal(ctx, bare)
	assert.ErrorIs(t, err, security.ErrMalformedToken)

	me, err := f.auth.CurrentUser(ctx, principal.UserID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", me.Email)
	assert.Nil(t, me.Professor)
}
