// Package main provides the entry point for the Gatekeeper API server
// @title Gatekeeper API
// @version 1.0
// @description Account lifecycle API: registration, email verification, login with lockout and password reset.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication
// @Security BearerAuth
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"gatekeeper/internal/account"
	"gatekeeper/internal/api/handlers"
	"gatekeeper/internal/api/routes"
	"gatekeeper/internal/api/server"
	"gatekeeper/internal/auth"
	"gatekeeper/internal/config"
	"gatekeeper/internal/database"
	"gatekeeper/internal/email"
	"gatekeeper/internal/logging"
	"gatekeeper/internal/repository"
	"gatekeeper/internal/repository/memory"
	"gatekeeper/internal/repository/postgres"
	"gatekeeper/internal/sweeper"
	"gatekeeper/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	// Parse command line flags
	envFile := flag.String("env", ".env", "Path to env file")
	inMemory := flag.Bool("in-memory", false, "Keep accounts in memory instead of PostgreSQL (data is lost on exit)")
	flag.Parse()

	// Load environment file
	envErr := godotenv.Load(*envFile)

	// Load configuration
	cfg := &config.Config{}
	if err := cfg.LoadFromEnv(); err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(os.Stderr, cfg.Log)
	if envErr != nil && *envFile == ".env" {
		logger.Warn().Err(envErr).Msg("no .env file loaded, using process environment")
	} else if envErr != nil {
		logger.Fatal().Err(envErr).Str("file", *envFile).Msg("failed to load env file")
	}
	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var (
		repo repository.AccountRepository
		db   handlers.Pinger
	)
	if *inMemory {
		logger.Warn().Msg("using in-memory account store")
		repo = memory.NewAccountRepository()
	} else {
		sqlDB, err := database.SetupDatabase(ctx, cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize database")
		}
		defer sqlDB.Close()
		repo = postgres.NewAccountRepository(sqlDB)
		db = sqlDB
	}

	// Initialize validators
	validation.Initialize()

	// Initialize services
	issuer := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	notifier := email.NewService(cfg.Email, cfg.Lifecycle, logger)
	accounts := account.NewService(
		repo,
		notifier,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		issuer,
		account.ConfigFrom(cfg),
		logger,
	)

	if cfg.Sweeper.Enabled {
		sw := sweeper.New(accounts, cfg.Sweeper.Schedule, logger)
		go func() {
			if err := sw.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("sweeper stopped")
			}
		}()
	}

	// Setup routes
	router := routes.SetupRoutes(ctx, routes.Dependencies{
		Config:  cfg,
		DB:      db,
		Service: accounts,
		Tokens:  issuer,
		Logger:  logger,
	})

	srv, err := server.New(cfg.API.Port, router, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid server configuration")
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}

	logger.Info().Msg("server exiting")
}
