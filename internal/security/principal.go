package security

import (
	"context"

	"github.com/google/uuid"

	"github.com/academichub/backend-go/internal/database/models"
)

// Principal is the authenticated caller resolved from a bearer token
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
	// Token is the raw access token the principal was resolved from
	Token string
}

// Authorities returns the role-derived authority list
func (p *Principal) Authorities() []string {
	return []string{p.Role.Authority()}
}

// PrincipalFromClaims builds a principal from verified claims. The first role claim wins.
func PrincipalFromClaims(claims *Claims, token string) (*Principal, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrMalformedToken
	}
	if len(claims.Roles) == 0 {
		return nil, ErrMalformedToken
	}
	role, err := models.ParseRole(claims.Roles[0])
	if err != nil {
		return nil, ErrMalformedToken
	}
	return &Principal{
		UserID: userID,
		Email:  claims.Email,
		Role:   role,
		Token:  token,
	}, nil
}

// HasRole is the authorization check applied at the HTTP boundary.
// An anonymous (nil) principal has no roles.
func HasRole(principal *Principal, required ...models.Role) bool {
	if principal == nil {
		return false
	}
	for _, role := range required {
		if principal.Role == role {
			return true
		}
	}
	return false
}

type principalKey struct{}

// ContextWithPrincipal attaches the principal to a request context
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the principal attached by the request filter, if any
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*Principal)
	return principal, ok && principal != nil
}
