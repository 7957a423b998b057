package router

import "github.com/gin-gonic/gin"

func (r *Router) userRoutes(version *gin.RouterGroup) {
	users := version.Group("/users")
	{
		// All profile routes require JWT authentication
		users.Use(r.jwtMw.RequireAuth())
		{
			users.GET("/me", r.userHandler.GetMe)
			users.PATCH("/me/status", r.userHandler.UpdateStatus)
			users.PATCH("/me/avatar", r.userHandler.UpdateAvatar)
			users.DELETE("/me", r.userHandler.DeleteAccount)
		}
	}
}
