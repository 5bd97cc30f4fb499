package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/academichub/backend-go/internal/config"
)

// EventPasswordReset is the notification type consumed by the email worker
const EventPasswordReset = "password_reset"

// PasswordResetEvent is the JSON payload published for each reset request
type PasswordResetEvent struct {
	Type      string    `json:"type"`
	To        string    `json:"to"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes reset notifications to the notification topic
type KafkaSender struct {
	writer      messageWriter
	frontendURL string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewKafkaSender creates a sender writing to cfg.KafkaNotificationTopic
func NewKafkaSender(cfg *config.Config, logger *slog.Logger) *KafkaSender {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaNotificationTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info("📨 [Mailer] Kafka notification sender configured",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaNotificationTopic,
	)

	return newKafkaSender(writer, cfg, logger)
}

func newKafkaSender(writer messageWriter, cfg *config.Config, logger *slog.Logger) *KafkaSender {
	return &KafkaSender{
		writer:      writer,
		frontendURL: cfg.FrontendURL,
		timeout:     time.Duration(cfg.MailTimeout) * time.Second,
		logger:      logger,
	}
}

func (s *KafkaSender) SendPasswordResetEmail(ctx context.Context, to, token string, expiresAt time.Time) error {
	event := PasswordResetEvent{
		Type:      EventPasswordReset,
		To:        to,
		ResetURL:  ResetURL(s.frontendURL, token),
		ExpiresAt: expiresAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	// Keyed by recipient so one user's notifications stay ordered
	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(to), Value: data}); err != nil {
		s.logger.Error("❌ [Mailer] Failed to publish password reset event",
			"to", to,
			"error", err,
		)
		return fmt.Errorf("kafka: publish failed: %w", err)
	}

	s.logger.Info("📨 [Mailer] Password reset event published", "to", to)
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
