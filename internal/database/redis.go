package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/academichub/backend-go/internal/config"
)

// RedisClient wraps the redis client with helpers for the revocation cache
type RedisClient struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisClient creates a new Redis client instance
func NewRedisClient(cfg *config.Config, logger *slog.Logger) (*RedisClient, error) {
	logger.Info("🔌 [Redis] Connecting to Redis...",
		"host", cfg.RedisHost,
		"port", cfg.RedisPort,
		"db", cfg.RedisDatabase,
	)

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       int(cfg.RedisDatabase),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ [Redis] Redis connection established")

	return &RedisClient{
		client: client,
		logger: logger,
	}, nil
}

// NewRedisClientForTesting creates a Redis client with a provided redis.Client (for testing)
func NewRedisClientForTesting(client *redis.Client, logger *slog.Logger) *RedisClient {
	return &RedisClient{
		client: client,
		logger: logger,
	}
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

func revokedKey(tokenHash string) string {
	return fmt.Sprintf("revoked:%s", tokenHash)
}

// MarkRevoked caches a revoked token hash until the token would have expired anyway
func (r *RedisClient) MarkRevoked(ctx context.Context, tokenHash string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, revokedKey(tokenHash), 1, ttl).Err(); err != nil {
		r.logger.Error("❌ [Redis] Failed to cache revoked token",
			"error", err,
		)
		return err
	}

	r.logger.Debug("💾 [Redis] Cached revoked token", "ttl", ttl)
	return nil
}

// IsRevoked reports a cache hit; a miss says nothing about the ledger
func (r *RedisClient) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(tokenHash)).Result()
	if err != nil {
		r.logger.Warn("⚠️ [Redis] Revocation lookup failed",
			"error", err,
		)
		return false, err
	}
	return n > 0, nil
}

// GetClient returns the underlying Redis client (for advanced use cases)
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}
