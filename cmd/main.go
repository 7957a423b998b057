package main

import (
	"os"
	"os/signal"
	"syscall"

	configs "github.com/fluxmesh/accounts/config"
	"github.com/fluxmesh/accounts/internal/handler"
	"github.com/fluxmesh/accounts/internal/middleware"
	"github.com/fluxmesh/accounts/internal/repository"
	"github.com/fluxmesh/accounts/internal/router"
	"github.com/fluxmesh/accounts/internal/service"
	"github.com/fluxmesh/accounts/pkg/cache"
	"github.com/fluxmesh/accounts/pkg/database"
	"github.com/fluxmesh/accounts/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
	)

	db, err := database.NewPostgresDB(database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	// Cache store. The testing flag swaps Redis for the in-memory store so
	// local runs need no infrastructure.
	var store cache.Store
	if config.App.Testing {
		store = cache.NewMemoryStore()
		logger.GetLogger().Info("Using in-memory cache store (testing)")
	} else {
		store, err = cache.NewRedisStore(config)
		if err != nil {
			logger.GetLogger().Fatal("Failed to connect to Redis", zap.Error(err))
		}
	}
	defer store.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)

	// Services
	tokenService := service.NewTokenService(config.App.Domain, config.Tokens)
	accessCodeService := service.NewAccessCodeService(store, config.TwoFactor.Namespace, config.TwoFactor.TTL)

	var mailer service.Mailer
	if config.App.Testing {
		mailer = service.NewLogMailer()
	} else {
		mailer, err = service.NewSMTPMailer(config)
		if err != nil {
			logger.GetLogger().Fatal("Failed to initialize mailer", zap.Error(err))
		}
	}

	authService := service.NewAuthService(userRepo, tokenService, accessCodeService, mailer, config.App.FrontendURL)
	sessionService := service.NewSessionService(store, userRepo, tokenService, config.Session.Namespace, config.Session.TTL)
	userService := service.NewUserService(userRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, tokenService, config)
	userHandler := handler.NewUserHandler(userService, authHandler)
	sessionHandler := handler.NewSessionHandler(sessionService)
	healthHandler := handler.NewHealthHandler(db, store)

	// Middleware
	validationMiddleware := middleware.NewValidationMiddleware()
	jwtMiddleware := middleware.NewJWTMiddleware(tokenService)

	r := router.NewRouter(
		authHandler,
		userHandler,
		sessionHandler,
		healthHandler,

		validationMiddleware,
		jwtMiddleware,
		config,
	).SetupRoutes()

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := r.Run(":" + config.App.Port); err != nil {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")
}
