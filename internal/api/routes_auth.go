package api

import (
	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/handlers"
)

type authRouteDeps struct {
	Handler     *handlers.AuthHandler
	RequireAuth gin.HandlerFunc
	Limits      rateLimits
}

func registerAuthRoutes(r *gin.Engine, deps authRouteDeps) {
	h := deps.Handler
	auth := r.Group("/auth")
	{
		auth.POST("/login", deps.Limits.limit(deps.Limits.cfg.Login), h.Login)
		auth.POST("/register", deps.Limits.limit(deps.Limits.cfg.Register), h.Register)
		auth.POST("/forgot-password", deps.Limits.limit(deps.Limits.cfg.Forgot), h.ForgotPassword)
		auth.POST("/verify-reset-code", h.VerifyResetCode)
		auth.POST("/reset-password", deps.Limits.limit(deps.Limits.cfg.Reset), h.ResetPassword)

		auth.GET("/oauth/google", h.GoogleLogin)
		auth.GET("/oauth/google/callback", h.GoogleCallback)
	}

	protected := auth.Group("", deps.RequireAuth)
	{
		protected.POST("/logout", h.Logout)
		protected.GET("/verify-token", h.VerifyToken)
		protected.GET("/check-auth", h.CheckAuth)
	}
}
