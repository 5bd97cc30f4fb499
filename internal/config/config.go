package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// MinSecretLength is the recommended HS512 key size in bytes
const MinSecretLength = 64

type Config struct {
	AppEnv                       string
	LogLevel                     slog.Level
	ApiServicePort               string
	ApiGrpcPort                  string
	PostgreSQLHost               string
	PostgreSQLPort               int64
	PostgreSQLUser               string
	PostgreSQLPassword           string
	PostgreSQLDatabase           string
	JWTSecret                    string
	JWTIssuer                    string
	AccessTokenExpiration        int64 // milliseconds
	RefreshTokenExpiration       int64 // milliseconds
	PasswordResetTokenExpiration int64 // milliseconds
	BcryptCost                   int64
	RedisHost                    string
	RedisPort                    int64
	RedisPassword                string
	RedisDatabase                int64
	KafkaBrokers                 []string
	KafkaNotificationTopic       string
	FrontendURL                  string
	CleanupSchedule              string
	MailTimeout                  int64 // seconds
}

func LoadConfig() *Config {
	return &Config{
		AppEnv:                       getEnv("APP_ENV", "development"),                           // Default development
		LogLevel:                     getLogLevel(),                                              // Default INFO
		ApiServicePort:               getEnv("API_SERVICE_PORT", "8080"),                         // Default 8080
		ApiGrpcPort:                  getEnv("API_GRPC_PORT", "50052"),                           // Default 50052 (health)
		PostgreSQLHost:               getEnv("POSTGRESQL_HOST", "db"),                            // Default db
		PostgreSQLPort:               getEnvAsInt64("POSTGRESQL_PORT", 5432),                     // Default 5432
		PostgreSQLUser:               getEnv("POSTGRESQL_USER", "academichub_user"),              // Default user
		PostgreSQLPassword:           getEnv("POSTGRESQL_PASSWORD", "academichub_password"),      // Default password
		PostgreSQLDatabase:           getEnv("POSTGRESQL_DATABASE", "academichub_db"),            // Default database name
		JWTSecret:                    getEnv("JWT_SECRET", ""),                                   // Required
		JWTIssuer:                    getEnv("JWT_ISSUER", "Academic Hub"),                       // Default issuer
		AccessTokenExpiration:        getEnvAsInt64("ACCESS_TOKEN_EXPIRATION", 3600000),          // Default 1 hour
		RefreshTokenExpiration:       getEnvAsInt64("REFRESH_TOKEN_EXPIRATION", 604800000),       // Default 7 days
		PasswordResetTokenExpiration: getEnvAsInt64("PASSWORD_RESET_TOKEN_EXPIRATION", 86400000), // Default 24 hours
		BcryptCost:                   getEnvAsInt64("BCRYPT_COST", 10),                           // Default bcrypt.DefaultCost
		RedisHost:                    getEnv("REDIS_HOST", "redis"),                              // Default redis
		RedisPort:                    getEnvAsInt64("REDIS_PORT", 6379),                          // Default 6379
		RedisPassword:                getEnv("REDIS_PASSWORD", ""),                               // Default empty
		RedisDatabase:                getEnvAsInt64("REDIS_DATABASE", 0),                         // Default 0
		KafkaBrokers:                 getEnvAsList("KAFKA_BROKERS"),                              // Empty disables Kafka
		KafkaNotificationTopic:       getEnv("KAFKA_NOTIFICATION_TOPIC", "notification_events"),  // Default topic
		FrontendURL:                  getEnv("FRONTEND_URL", "http://localhost:3000"),            // Used in reset links
		CleanupSchedule:              getEnv("CLEANUP_SCHEDULE", "0 */6 * * *"),                  // Every 6 hours
		MailTimeout:                  getEnvAsInt64("MAIL_TIMEOUT", 10),                          // Default 10 seconds
	}
}

// Validate checks the settings the auth core cannot run without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.AccessTokenExpiration <= 0 || c.RefreshTokenExpiration <= 0 || c.PasswordResetTokenExpiration <= 0 {
		return errors.New("token expirations must be positive")
	}
	return nil
}

// WeakSecret reports whether the signing key is shorter than recommended for HS512
func (c *Config) WeakSecret() bool {
	return len(c.JWTSecret) < MinSecretLength
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpiration) * time.Millisecond
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpiration) * time.Millisecond
}

func (c *Config) PasswordResetTokenTTL() time.Duration {
	return time.Duration(c.PasswordResetTokenExpiration) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsList(key string) []string {
	value := getEnv(key, "")
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
