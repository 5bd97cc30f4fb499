package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RevokedToken records an access token invalidated before its natural expiry.
// Lookups go through TokenHash (SHA-256 of the raw token) since JWTs exceed
// comfortable index sizes; ExpiresAt is copied from the token's own exp claim.
type RevokedToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	TokenHash string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	RevokedAt time.Time `gorm:"not null" json:"revoked_at"`
}

// TableName overrides the table name
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

func (t *RevokedToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.RevokedAt.IsZero() {
		t.RevokedAt = time.Now()
	}
	return nil
}

// HashToken returns the hex SHA-256 digest used to index revoked tokens
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
