package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sealpoint/esign-portal/esign-portal-backend/internal/audit"
	"sealpoint/esign-portal/esign-portal-backend/internal/audit/export"
	"sealpoint/esign-portal/esign-portal-backend/internal/auth"
	"sealpoint/esign-portal/esign-portal-backend/internal/compliance"
	"sealpoint/esign-portal/esign-portal-backend/internal/config"
	"sealpoint/esign-portal/esign-portal-backend/internal/contracts"
	"sealpoint/esign-portal/esign-portal-backend/internal/verification"
	"sealpoint/esign-portal/esign-portal-backend/pkg/clock"
	"sealpoint/esign-portal/esign-portal-backend/pkg/geo"
	"sealpoint/esign-portal/esign-portal-backend/pkg/storage"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	logger.Info("Connecting to database", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// gorm shares the same database for the audit tables
	gormDB, err := gorm.Open(gormpostgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	auditRepo := audit.NewRepository(gormDB)
	if err := auditRepo.Migrate(); err != nil {
		logger.Fatal("Failed to migrate audit tables", zap.Error(err))
	}

	// Storage and geolocation collaborators
	ctx := context.Background()
	s3Client, err := storage.NewS3Client(ctx, cfg.Storage.Region)
	if err != nil {
		logger.Fatal("Failed to initialize S3 client", zap.Error(err))
	}
	resolver := geo.NewStaticResolver(nil)
	clk := clock.New()

	// Compliance
	retention := compliance.RetentionPolicy{
		StorageLocation: "s3://" + cfg.Storage.Bucket,
		Years:           cfg.Compliance.RetentionYears,
		ArchivePolicy:   cfg.Compliance.ArchivePolicy,
	}
	builder := compliance.NewBuilder(resolver, clk, retention, logger)

	// Contracts
	contractsRepo := contracts.NewRepository(db)
	recorder := audit.NewContractRecorder(auditRepo, logger)
	contractsService := contracts.NewService(contractsRepo, s3Client, cfg.Storage.Bucket, builder, recorder, clk, logger)
	contractsHandler := contracts.NewHandler(contractsService)

	// Verification
	engine := verification.NewEngine(s3Client, clk, logger)
	verificationService := verification.NewService(contractsRepo, engine, auditRepo, logger)
	verificationHandler := verification.NewHandler(verificationService)

	// Auth
	authService := auth.NewService(db, cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	authHandler := auth.NewHandler(authService)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	auth.RegisterRoutes(router, authHandler)

	// Register Routes
	api := router.Group("/api/v1")
	api.Use(auth.Middleware(authService))
	{
		contractsHandler.RegisterRoutes(api)
		exportHandler := export.NewHandler(contractsService, verificationService, auditRepo)
		exportHandler.RegisterRoutes(api)
		auditHandler := audit.NewHandler(auditRepo)
		auditHandler.RegisterRoutes(api)
	}

	// Code verification is public: third parties hold only the code.
	public := router.Group("/api/v1")
	{
		verificationHandler.RegisterRoutes(public)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen error", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
