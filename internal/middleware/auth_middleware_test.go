package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/academichub/backend-go/internal/database/models"
	"github.com/academichub/backend-go/internal/security"
	"github.com/academichub/backend-go/internal/testutil"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolvePrincipal(ctx context.Context, accessToken string) (*security.Principal, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.Principal), args.Error(1)
}

func newRouter(resolver PrincipalResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	mw := NewAuthMiddleware(resolver, testutil.TestLogger())

	router := gin.New()
	router.Use(mw.Authenticate())
	router.GET("/open", func(c *gin.Context) {
		_, ok := GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	router.GET("/private", mw.RequireAuth(), func(c *gin.Context) {
		principal, _ := security.PrincipalFromContext(c.Request.Context())
		c.String(http.StatusOK, principal.UserID.String())
	})
	router.GET("/admin", mw.RequireRole(models.RoleAdmin, models.RoleStaff), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthenticate_NeverRejects(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("ResolvePrincipal", mock.Anything, "bad").Return(nil, errors.New("invalid token"))
	router := newRouter(resolver)

	headers := []string{"", "Basic abc", "Bearer", "Bearer ", "Bearer bad", "bearer bad"}
	for _, header := range headers {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/open", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
		})
	}
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	resolver := &mockResolver{}
	resolver.On("ResolvePrincipal", mock.Anything, "good").Return(&security.Principal{UserID: userID, Role: models.RoleProfessor, Token: "good"}, nil)
	resolver.On("ResolvePrincipal", mock.Anything, "revoked").Return(nil, errors.New("token has been revoked"))
	router := newRouter(resolver)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"revoked token", "Bearer revoked", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestAuthenticate_StoresOnlyPrincipal(t *testing.T) {
	userID := uuid.New()
	resolver := &mockResolver{}
	resolver.On("ResolvePrincipal", mock.Anything, "good").Return(&security.Principal{UserID: userID, Role: models.RoleStaff, Token: "good"}, nil)

	gin.SetMode(gin.TestMode)
	mw := NewAuthMiddleware(resolver, testutil.TestLogger())
	router := gin.New()
	router.GET("/keys", mw.Authenticate(), func(c *gin.Context) {
		keys := make([]string, 0, len(c.Keys))
		for k := range c.Keys {
			keys = append(keys, k.(string))
		}
		c.JSON(http.StatusOK, keys)
	})

	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["principal"]`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("ResolvePrincipal", mock.Anything, "admin").Return(&security.Principal{UserID: uuid.New(), Role: models.RoleAdmin}, nil)
	resolver.On("ResolvePrincipal", mock.Anything, "staff").Return(&security.Principal{UserID: uuid.New(), Role: models.RoleStaff}, nil)
	resolver.On("ResolvePrincipal", mock.Anything, "prof").Return(&security.Principal{UserID: uuid.New(), Role: models.RoleProfessor}, nil)
	router := newRouter(resolver)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"admin allowed", "Bearer admin", http.StatusNoContent},
		{"staff allowed", "Bearer staff", http.StatusNoContent},
		{"professor forbidden", "Bearer prof", http.StatusForbidden},
		{"anonymous unauthorized", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
