// Package api provides HTTP routing and server configuration for the
// AuthorHash registry. It wires together handlers, middleware, and services
// to create the application's API endpoints.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/librisventures/authorhash/internal/anchor"
	"github.com/librisventures/authorhash/internal/api/handlers"
	"github.com/librisventures/authorhash/internal/api/middleware"
	"github.com/librisventures/authorhash/internal/config"
	"github.com/librisventures/authorhash/internal/database"
	"github.com/librisventures/authorhash/internal/notify"
	"github.com/librisventures/authorhash/internal/service"
	"go.uber.org/zap"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *database.Database, logger *zap.Logger) *gin.Engine {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg))

	// Initialize services
	anchorClient := anchor.NewHTTPClient(cfg.Anchor.CalendarURL, cfg.Anchor.Timeout)
	outbox := notify.NewOutbox(db)

	userService := service.NewUserService(db, cfg)
	registryService := service.NewRegistryService(db, anchorClient, outbox, cfg, logger)
	sweepService := service.NewSweepService(db, anchorClient, logger)
	accessService := service.NewAccessService(db, outbox, cfg, logger)

	// Initialize handlers
	setupHandler := handlers.NewSetupHandler(userService, logger)
	authHandler := handlers.NewAuthHandler(userService, logger)
	webhookHandler := handlers.NewWebhookHandler(registryService, cfg, logger)
	certHandler := handlers.NewCertificateHandler(registryService, logger)
	accessHandler := handlers.NewAccessHandler(accessService, logger)
	adminHandler := handlers.NewAdminHandler(registryService, sweepService, accessService, logger)

	// Public routes
	public := router.Group("/api/v1")
	{
		// Setup routes (no auth required)
		public.GET("/setup/status", setupHandler.GetStatus)
		public.POST("/setup", setupHandler.PerformSetup)

		// Auth routes
		public.POST("/auth/login", authHandler.Login)

		// Payment webhook
		public.POST("/webhooks/payment", webhookHandler.HandlePayment)

		// Certificate lookups
		public.GET("/certificates/:reference", certHandler.GetByReference)
		public.GET("/certificates", certHandler.FindByHash)

		// Email access tokens
		public.POST("/access/request", accessHandler.RequestAccess)
		public.POST("/access/validate", accessHandler.ValidateAccess)
	}

	// Protected routes (require authentication)
	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		// Auth
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		// Operator maintenance
		protected.POST("/admin/sweep", adminHandler.RunSweep)
		protected.POST("/admin/tokens/cleanup", adminHandler.CleanupTokens)
		protected.GET("/admin/certificates", adminHandler.ListCertificates)
	}

	return router
}
