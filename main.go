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

	"github.com/InfradynAB/infradyn1-sub003/config"
	"github.com/InfradynAB/infradyn1-sub003/handler"
	"github.com/InfradynAB/infradyn1-sub003/middleware"
	"github.com/InfradynAB/infradyn1-sub003/pkg/logger"
	"github.com/InfradynAB/infradyn1-sub003/service"
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

	// Initialize services
	store, err := service.NewStore(&cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	parserSvc := service.NewParserService(&cfg.Parser)
	llmSvc := service.NewLLMService(&cfg.LLM)
	kpiSvc := service.NewKPIService(store.DB())

	// Initialize extraction job store with config
	service.InitJobStore(&cfg.Jobs)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	projectHandler := handler.NewProjectHandler(store)
	poHandler := handler.NewPurchaseOrderHandler(store)
	supplierHandler := handler.NewSupplierHandler(store)
	ncrHandler := handler.NewNCRHandler(store)
	deliveryHandler := handler.NewDeliveryHandler(store)
	documentHandler := handler.NewDocumentHandler(minioSvc, parserSvc, llmSvc)
	kpiHandler := handler.NewKPIHandler(kpiSvc)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	// Rate limiting: 100 requests per minute; health checks and the
	// parser callback are exempt
	router.Use(middleware.RateLimit(100, time.Minute, "/health", "/api/parser/callback"))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/parser/callback", documentHandler.HandleCallback)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.GET("/projects", projectHandler.List)
		protected.GET("/projects/:id", projectHandler.Get)

		protected.GET("/purchase-orders", poHandler.List)
		protected.GET("/purchase-orders/:id", poHandler.Get)
		protected.GET("/purchase-orders/:id/compliance", poHandler.Compliance)
		protected.GET("/purchase-orders/:id/ncrs", ncrHandler.List)
		protected.GET("/purchase-orders/:id/shipments", deliveryHandler.ListShipments)
		protected.GET("/purchase-orders/:id/invoices", deliveryHandler.ListInvoices)
		protected.POST("/compliance/preview", poHandler.Preview)

		protected.GET("/suppliers", supplierHandler.List)
		protected.GET("/suppliers/:id", supplierHandler.Get)

		protected.GET("/documents", documentHandler.List)
		protected.GET("/documents/:id", documentHandler.Get)
		protected.GET("/documents/:id/status", documentHandler.GetStatus)

		protected.GET("/kpi/dashboard", kpiHandler.Dashboard)
		protected.GET("/kpi/financial", kpiHandler.Financial)
		protected.GET("/kpi/progress", kpiHandler.Progress)
		protected.GET("/kpi/quality", kpiHandler.Quality)
		protected.GET("/kpi/suppliers", kpiHandler.Suppliers)
		protected.GET("/kpi/payments", kpiHandler.Payments)
		protected.GET("/kpi/logistics", kpiHandler.Logistics)
		protected.GET("/kpi/scurve", kpiHandler.SCurve)
	}

	// Mutating routes require the procurement role
	editing := protected.Group("/")
	editing.Use(middleware.RequireRole(middleware.RoleProcurement))
	{
		editing.POST("/projects", projectHandler.Create)

		editing.POST("/purchase-orders", poHandler.Create)
		editing.PUT("/purchase-orders/:id", poHandler.Update)
		editing.DELETE("/purchase-orders/:id", poHandler.Delete)
		editing.POST("/purchase-orders/:id/publish", poHandler.Publish)
		editing.POST("/purchase-orders/:id/ncrs", ncrHandler.Create)
		editing.POST("/purchase-orders/:id/shipments", deliveryHandler.CreateShipment)
		editing.POST("/purchase-orders/:id/invoices", deliveryHandler.CreateInvoice)

		editing.POST("/ncrs/:ncr_id/close", ncrHandler.Close)
		editing.PUT("/shipments/:shipment_id/status", deliveryHandler.UpdateShipmentStatus)
		editing.POST("/invoices/:invoice_id/paid", deliveryHandler.MarkInvoicePaid)

		editing.POST("/suppliers", supplierHandler.Create)
		editing.PUT("/suppliers/:id", supplierHandler.Update)

		editing.POST("/documents/upload", documentHandler.Upload)
		editing.DELETE("/documents/:id", documentHandler.Delete)
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
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
