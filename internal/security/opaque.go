package security

import "github.com/google/uuid"

// NewOpaqueToken returns a random token with no decodable structure
func NewOpaqueToken() string {
	return uuid.NewString()
}
