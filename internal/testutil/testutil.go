package testutil

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/academichub/backend-go/internal/config"
	"github.com/academichub/backend-go/internal/database/models"
)

// TestSecret is long enough to avoid the weak-secret warning
var TestSecret = strings.Repeat("s", config.MinSecretLength)

// TestConfig returns a config with short-lived settings suited to tests
func TestConfig() *config.Config {
	return &config.Config{
		AppEnv:                       "test",
		LogLevel:                     slog.LevelError,
		ApiServicePort:               "8080",
		ApiGrpcPort:                  "50052",
		JWTSecret:                    TestSecret,
		JWTIssuer:                    "Academic Hub",
		AccessTokenExpiration:        3600000,
		RefreshTokenExpiration:       604800000,
		PasswordResetTokenExpiration: 86400000,
		BcryptCost:                   4,
		KafkaNotificationTopic:       "notification_events",
		FrontendURL:                  "http://localhost:3000",
		CleanupSchedule:              "0 */6 * * *",
		MailTimeout:                  1,
	}
}

// TestLogger returns a logger that discards output
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestDB creates an in-memory SQLite database with the full schema.
// A single connection keeps every query on the same in-memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.Professor{},
		&models.RefreshToken{},
		&models.RevokedToken{},
		&models.PasswordResetToken{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// CreateUser inserts an active user with the given password hash
func CreateUser(t *testing.T, db *gorm.DB, email, passwordHash string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateDepartment inserts a department with the given name
func CreateDepartment(t *testing.T, db *gorm.DB, name string) *models.Department {
	t.Helper()

	department := &models.Department{Name: name}
	require.NoError(t, db.Create(department).Error)
	return department
}
