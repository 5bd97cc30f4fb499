package api

import (
	"github.com/gin-gonic/gin"

	"github.com/academichub/backend-go/internal/database/models"
	"github.com/academichub/backend-go/internal/handler"
	"github.com/academichub/backend-go/internal/metrics"
	"github.com/academichub/backend-go/internal/middleware"
)

func SetupRouter(
	authHandler *handler.AuthHandler,
	authMiddleware *middleware.AuthMiddleware,
	m *metrics.Metrics,
) *gin.Engine {
	r := gin.Default()
	r.SetTrustedProxies(nil)

	if m != nil {
		r.Use(m.GinMiddleware())
		r.GET("/metrics", m.Handler())
	}

	// Public routes
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Auth routes. Authenticate never rejects; protected routes add their own guard.
	authGroup := r.Group("/api/v1/auth")
	authGroup.Use(authMiddleware.Authenticate())
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.RefreshToken)
		authGroup.POST("/password/reset/request", authHandler.RequestPasswordReset)
		authGroup.GET("/password/reset/validate", authHandler.ValidateResetToken)
		authGroup.POST("/password/reset", authHandler.ResetPassword)

		authGroup.POST("/logout", authMiddleware.RequireAuth(), authHandler.Logout)
		authGroup.POST("/password/change", authMiddleware.RequireAuth(), authHandler.ChangePassword)
		authGroup.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)

		authGroup.POST("/register/professor",
			authMiddleware.RequireRole(models.RoleAdmin, models.RoleStaff),
			authHandler.RegisterProfessor,
		)
	}

	return r
}
