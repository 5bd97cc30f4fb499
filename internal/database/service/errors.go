package service

import "errors"

// Service errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")

	ErrResetTokenNotFound = errors.New("password reset token not found")
	ErrResetTokenUsed     = errors.New("password reset token already used")
	ErrResetTokenExpired  = errors.New("password reset token expired")

	ErrTokenRevoked          = errors.New("token has been revoked")
	ErrInvalidProfessorTitle = errors.New("invalid professor title")
	ErrEmailDispatch         = errors.New("failed to send password reset email")
)
