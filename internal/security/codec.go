package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/academichub/backend-go/internal/config"
	"github.com/academichub/backend-go/internal/database/models"
)

// signingMethod is fixed; tokens signed with anything else are rejected
var signingMethod = jwt.SigningMethodHS512

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrMalformedToken = errors.New("malformed token")
)

// Claims carried by access and refresh tokens
type Claims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Clock returns the current time
type Clock func() time.Time

// TokenCodec signs and verifies time-bounded tokens. It has no persistence
// dependency; revocation is layered on top by the caller.
type TokenCodec struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        Clock
}

// CodecOption customizes a TokenCodec
type CodecOption func(*TokenCodec)

// WithClock replaces the time source used during validation
func WithClock(clock Clock) CodecOption {
	return func(c *TokenCodec) {
		c.now = clock
	}
}

// NewTokenCodec creates a codec from the JWT settings in cfg
func NewTokenCodec(cfg *config.Config, opts ...CodecOption) *TokenCodec {
	codec := &TokenCodec{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		accessTTL:  cfg.AccessTokenTTL(),
		refreshTTL: cfg.RefreshTokenTTL(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(codec)
	}
	return codec
}

// AccessTTL is the lifetime of tokens minted by IssueAccessToken
func (c *TokenCodec) AccessTTL() time.Duration {
	return c.accessTTL
}

// IssueAccessToken mints a token for the user with its current email and role-derived authority
func (c *TokenCodec) IssueAccessToken(userID uuid.UUID, email string, role models.Role, now time.Time) (string, error) {
	claims := Claims{
		Email:            email,
		Roles:            []string{role.Authority()},
		RegisteredClaims: c.registered(userID, now, c.accessTTL),
	}
	return c.sign(claims)
}

// IssueRefreshToken mints a long-lived signed token carrying only the subject
func (c *TokenCodec) IssueRefreshToken(userID uuid.UUID, now time.Time) (string, error) {
	return c.sign(Claims{RegisteredClaims: c.registered(userID, now, c.refreshTTL)})
}

// Validate reports whether the token is well-formed, correctly signed, issued by us
// and not expired. It never returns an error: any problem collapses to false.
func (c *TokenCodec) Validate(tokenString string) bool {
	_, err := c.parse(tokenString)
	return err == nil
}

// ParseClaims returns the verified claims of a token
func (c *TokenCodec) ParseClaims(tokenString string) (*Claims, error) {
	claims, err := c.parse(tokenString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

// DecodeSubject extracts the user id. Callers are expected to Validate first.
func (c *TokenCodec) DecodeSubject(tokenString string) (uuid.UUID, error) {
	claims, err := c.ParseClaims(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a user id", ErrMalformedToken)
	}
	return userID, nil
}

// ExpiresAt returns the exp claim of a correctly signed token, even when it is
// already expired
func (c *TokenCodec) ExpiresAt(tokenString string) (time.Time, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, c.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing exp claim", ErrInvalidToken)
	}
	return claims.ExpiresAt.Time, nil
}

func (c *TokenCodec) registered(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (c *TokenCodec) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(signingMethod, claims)
	return token.SignedString(c.secret)
}

func (c *TokenCodec) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, c.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return c.secret, nil
}
