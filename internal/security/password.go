package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is a one-way password hash with verification
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
	// VerifyDummy spends the same work as Verify against a throwaway hash, so a
	// missing account takes as long to reject as a wrong password
	VerifyDummy(password string)
}

type bcryptHasher struct {
	cost      int
	dummyHash []byte
}

// NewBcryptHasher creates a bcrypt hasher; out-of-range costs fall back to bcrypt.DefaultCost
func NewBcryptHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("academichub-dummy-password"), cost)
	if err != nil {
		// Only reachable with an invalid cost, which was clamped above
		panic(err)
	}
	return &bcryptHasher{cost: cost, dummyHash: dummy}
}

func (h *bcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(hashed), nil
}

func (h *bcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *bcryptHasher) VerifyDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
}

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash (over 72 bytes)
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
