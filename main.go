package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/config"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/handler"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/middleware"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/logger"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/pkg/metrics"
	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	// Initialize contract store
	store, cleanup, err := newStore(cfg)
	if err != nil {
		slog.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Initialize image storage
	images, err := service.NewImageStore(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := images.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	// Start the contract lifecycle resolver
	resolverCtx, stopResolver := context.WithCancel(context.Background())
	defer stopResolver()
	resolver := service.NewResolver(store, &cfg.Resolver)
	go resolver.Run(resolverCtx)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	contractHandler := handler.NewContractHandler(store)
	proofHandler := handler.NewProofHandler(store, images)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(metrics.Middleware())                   // Request metrics
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Prometheus metrics
	router.GET("/metrics", metrics.Handler())

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/contracts", contractHandler.Create)
		protected.GET("/contracts", contractHandler.List)
		protected.GET("/contracts/:id", contractHandler.Get)
		protected.POST("/contracts/:id/sign", contractHandler.Sign)
		protected.DELETE("/contracts/:id", contractHandler.Withdraw)
		protected.POST("/contracts/:id/proofs", proofHandler.Submit)
		protected.GET("/contracts/:id/proofs", proofHandler.List)
		protected.DELETE("/proofs/:id", proofHandler.Delete)
		protected.POST("/proofs/:id/approve", proofHandler.Approve)
		protected.POST("/proofs/:id/reject", proofHandler.Reject)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	stopResolver()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// newStore picks the contract store from config. The memory store is the
// default for local development; postgres is used when a DSN is configured.
func newStore(cfg *config.Config) (service.Store, func(), error) {
	switch cfg.Store.Driver {
	case "", "memory":
		return service.NewMemoryStore(&cfg.Store), func() {}, nil
	case "postgres":
		pg, err := service.NewPostgresStore(cfg.Store.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() { pg.DB().Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
