package router

import (
	"time"

	"github.com/fluxmesh/accounts/config"
	"github.com/fluxmesh/accounts/internal/handler"
	"github.com/fluxmesh/accounts/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authHandler    *handler.AuthHandler
	userHandler    *handler.UserHandler
	sessionHandler *handler.SessionHandler
	healthHandler  *handler.HealthHandler

	validMw *middleware.ValidationMiddleware
	jwtMw   *middleware.JWTMiddleware
	Config  *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	user *handler.UserHandler,
	session *handler.SessionHandler,
	health *handler.HealthHandler,

	validMw *middleware.ValidationMiddleware,
	jwtMw *middleware.JWTMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:    auth,
		userHandler:    user,
		sessionHandler: session,
		healthHandler:  health,

		validMw: validMw,
		jwtMw:   jwtMw,
		Config:  cfg,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.ContextMiddleware("accounts", r.Config.App.Timeout))
	router.Use(middleware.CORS(r.Config.App.FrontendURL))

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.BasicHealth)
		api.GET("/health/full", r.healthHandler.HealthCheck)

		v1 := api.Group("/v1")
		{
			v1.Use(middleware.RateLimit(r.Config.RateLimit.Request, time.Duration(r.Config.RateLimit.Duration)*time.Second))

			r.authRoutes(v1)
			r.userRoutes(v1)
			r.sessionRoutes(v1)
		}
	}

	return router
}
