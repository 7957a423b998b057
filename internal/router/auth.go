package router

import (
	"github.com/fluxmesh/accounts/internal/dto"
	"github.com/gin-gonic/gin"
)

func (r *Router) authRoutes(version *gin.RouterGroup) {
	auth := version.Group("/auth")
	{
		// Public routes (no authentication required)
		auth.POST("/register",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.RegisterRequest{} }),
			r.authHandler.Register)
		auth.POST("/confirm-email", r.authHandler.ConfirmEmail)
		auth.POST("/login",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.LoginRequest{} }),
			r.authHandler.Login)
		auth.POST("/confirm-login",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.ConfirmLoginRequest{} }),
			r.authHandler.ConfirmLogin)
		auth.POST("/logout", r.authHandler.Logout)

		// The cookie path is scoped to this route, so its name is part of
		// the public contract and must not move.
		auth.POST("/refresh", r.authHandler.Refresh)

		auth.POST("/reset-password/email", r.authHandler.SendResetPasswordEmail)
		auth.POST("/reset-password",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.ResetPasswordRequest{} }),
			r.authHandler.ResetPassword)

		// Protected routes (JWT authentication required)
		protected := auth.Group("")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.PATCH("/two-factor", r.authHandler.ChangeTwoFactor)
			protected.PUT("/email",
				r.validMw.ValidateRequestBody(func() interface{} { return &dto.UpdateEmailRequest{} }),
				r.authHandler.UpdateEmail)
			protected.PUT("/password",
				r.validMw.ValidateRequestBody(func() interface{} { return &dto.UpdatePasswordRequest{} }),
				r.authHandler.UpdatePassword)
			protected.POST("/confirm-credentials", r.authHandler.ConfirmCredentials)
		}
	}
}
