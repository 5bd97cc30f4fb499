package database

import (
	"context"
	"time"
)

// RevocationCache mirrors revoked token hashes so the hot path can skip the database.
// It is never authoritative: a miss must fall through to the ledger table.
type RevocationCache interface {
	MarkRevoked(ctx context.Context, tokenHash string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
	Close() error
}
