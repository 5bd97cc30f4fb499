package mailer

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/academichub/backend-go/internal/logger"
)

// Sender dispatches password reset emails. It receives only the raw token and
// builds the link itself.
type Sender interface {
	SendPasswordResetEmail(ctx context.Context, to, token string, expiresAt time.Time) error
}

// ResetURL builds the frontend link a user follows to reset their password
func ResetURL(frontendURL, token string) string {
	return strings.TrimRight(frontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// LogSender only logs the dispatch; used when no broker is configured
type LogSender struct {
	frontendURL string
	logger      *slog.Logger
}

func NewLogSender(frontendURL string, logger *slog.Logger) *LogSender {
	return &LogSender{frontendURL: frontendURL, logger: logger}
}

func (s *LogSender) SendPasswordResetEmail(ctx context.Context, to, token string, expiresAt time.Time) error {
	s.logger.Info("📧 [Mailer] Password reset email (log only)",
		"to", to,
		"token", logger.TokenPrefix(token),
		"expires_at", expiresAt,
	)
	return nil
}
