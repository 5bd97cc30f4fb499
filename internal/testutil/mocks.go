package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/academichub/backend-go/internal/database/models"
)

// ==================== MOCK USER REPOSITORY ====================

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// ==================== MOCK REVOCATION CACHE ====================

// MockRevocationCache implements database.RevocationCache for testing
type MockRevocationCache struct {
	mock.Mock
}

func (m *MockRevocationCache) MarkRevoked(ctx context.Context, tokenHash string, ttl time.Duration) error {
	args := m.Called(ctx, tokenHash, ttl)
	return args.Error(0)
}

func (m *MockRevocationCache) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockRevocationCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ==================== RECORDING MAIL SENDER ====================

// SentResetEmail is one captured password reset dispatch
type SentResetEmail struct {
	To        string
	Token     string
	ExpiresAt time.Time
}

// RecordingSender implements mailer.Sender and remembers what it was asked to send
type RecordingSender struct {
	mu   sync.Mutex
	Err  error
	Sent []SentResetEmail
}

func (s *RecordingSender) SendPasswordResetEmail(ctx context.Context, to, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Sent = append(s.Sent, SentResetEmail{To: to, Token: token, ExpiresAt: expiresAt})
	return nil
}

// Last returns the most recent dispatch
func (s *RecordingSender) Last() (SentResetEmail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Sent) == 0 {
		return SentResetEmail{}, false
	}
	return s.Sent[len(s.Sent)-1], true
}
