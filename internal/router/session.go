package router

import (
	"github.com/fluxmesh/accounts/internal/dto"
	"github.com/gin-gonic/gin"
)

// sessionRoutes serve the realtime gateway. Create authenticates itself via
// the access token in the body; refresh and close trust the gateway, which
// already proved the identity when the session was created.
func (r *Router) sessionRoutes(version *gin.RouterGroup) {
	sessions := version.Group("/sessions")
	{
		sessions.POST("", r.sessionHandler.Create)
		sessions.POST("/refresh",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.SessionRefRequest{} }),
			r.sessionHandler.Refresh)
		sessions.POST("/close",
			r.validMw.ValidateRequestBody(func() interface{} { return &dto.SessionRefRequest{} }),
			r.sessionHandler.Close)
	}
}
