// Package routes handles the setup and configuration of API routes
package routes

import (
	"context"

	_ "gatekeeper/docs" // Import swagger docs
	"gatekeeper/internal/api/handlers"
	"gatekeeper/internal/api/middleware"
	"gatekeeper/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the collaborators the router is built from
type Dependencies struct {
	Config *config.Config
	// DB is checked by the health endpoint; nil when running without a database
	DB      handlers.Pinger
	Service handlers.AccountService
	Tokens  middleware.TokenValidator
	Logger  zerolog.Logger
}

// SetupRoutes configures all API routes and their handlers.
// ctx bounds the lifetime of the rate limiter's cleanup goroutine.
func SetupRoutes(ctx context.Context, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))

	healthHandler := handlers.NewHealthHandler(deps.DB)
	authHandler := handlers.NewAuthHandler(deps.Service, deps.Logger)
	accountHandler := handlers.NewAccountHandler(deps.Service, deps.Logger)
	authMiddleware := middleware.NewAuthMiddleware(deps.Tokens)

	// Routes without rate limiting
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Apply rate limiting to all other routes
	r.Use(middleware.NewRateLimiter(ctx, deps.Config).Middleware())

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/verify", authHandler.Verify)
			auth.POST("/resend-verification", authHandler.ResendVerification)
			auth.POST("/login", authHandler.Login)
			auth.POST("/reset-password", authHandler.RequestPasswordReset)
			auth.POST("/reset-password/complete", authHandler.CompletePasswordReset)
		}

		v1.GET("/account", authMiddleware.AuthRequired(), accountHandler.GetAccount)
	}

	return r
}
