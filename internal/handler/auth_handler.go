package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/academichub/backend-go/internal/database/models"
	"github.com/academichub/backend-go/internal/database/repository"
	"github.com/academichub/backend-go/internal/database/service"
	"github.com/academichub/backend-go/internal/middleware"
	"github.com/academichub/backend-go/internal/security"
)

// resetRequestMessage is returned whether or not the email is registered
const resetRequestMessage = "If the email is registered, a password reset link has been sent"

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	service service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(service service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Request/Response DTOs
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6,max=72"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

type RegisterProfessorRequest struct {
	Email             string   `json:"email" binding:"required,email"`
	Password          string   `json:"password" binding:"required,min=6,max=72"`
	FirstName         string   `json:"first_name" binding:"required,max=100"`
	LastName          string   `json:"last_name" binding:"required,max=100"`
	DepartmentID      string   `json:"department_id" binding:"required,uuid"`
	Title             string   `json:"title"`
	OfficeLocation    *string  `json:"office_location"`
	Phone             *string  `json:"phone"`
	ResearchInterests []string `json:"research_interests"`
}

type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	User         interface{} `json:"user,omitempty"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Email and password required."})
		return
	}

	result, err := h.service.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		TokenType:    result.TokenType,
		ExpiresIn:    result.ExpiresIn,
		User:         result.User,
	})
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid refresh request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token required"})
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	if err := h.service.Logout(c.Request.Context(), principal); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// ChangePassword handles POST /auth/password/change
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid change password request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password and new password (6-72 chars) required."})
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// RequestPasswordReset handles POST /auth/password/reset/request
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid password reset request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid email required"})
		return
	}

	err := h.service.InitiatePasswordReset(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": resetRequestMessage})
}

// ValidateResetToken handles GET /auth/password/reset/validate?token=
func (h *AuthHandler) ValidateResetToken(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token required"})
		return
	}

	if err := h.service.ValidatePasswordResetToken(c.Request.Context(), token); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// ResetPassword handles POST /auth/password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid reset password request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token and new password (6-72 chars) required."})
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// RegisterProfessor handles POST /auth/register/professor
func (h *AuthHandler) RegisterProfessor(c *gin.Context) {
	var req RegisterProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid professor registration request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Email, password, first_name, last_name and department_id required."})
		return
	}

	departmentID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid department_id"})
		return
	}

	summary, err := h.service.RegisterProfessor(c.Request.Context(), service.RegisterProfessorInput{
		Email:             req.Email,
		Password:          req.Password,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		DepartmentID:      departmentID,
		Title:             models.ProfessorTitle(strings.ToUpper(strings.TrimSpace(req.Title))),
		OfficeLocation:    req.OfficeLocation,
		Phone:             req.Phone,
		ResearchInterests: req.ResearchInterests,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summary)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), principal.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"authorities": principal.Authorities(),
	})
}

// handleServiceError maps service errors to HTTP responses
func (h *AuthHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, service.ErrAccountDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
	case errors.Is(err, service.ErrRefreshTokenNotFound),
		errors.Is(err, service.ErrRefreshTokenRevoked),
		errors.Is(err, service.ErrRefreshTokenExpired),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrMalformedToken):
		// One message for every session failure; the kind stays in the logs
		h.logger.Warn("⚠️ [Handler] Invalid session", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session, please log in again"})
	case errors.Is(err, service.ErrResetTokenNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid password reset token"})
	case errors.Is(err, service.ErrResetTokenUsed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password reset token has already been used"})
	case errors.Is(err, service.ErrResetTokenExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password reset token has expired"})
	case errors.Is(err, service.ErrInvalidProfessorTitle):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid professor title"})
	case errors.Is(err, security.ErrPasswordTooLong):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password too long"})
	case errors.Is(err, repository.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
	case errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, repository.ErrDepartmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Department not found"})
	case errors.Is(err, repository.ErrProfessorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Professor not found"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request cancelled"})
	default:
		h.logger.Error("❌ [Handler] Internal server error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
