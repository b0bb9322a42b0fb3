package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"sealpoint/esign-portal/esign-portal-backend/internal/audit"
	"sealpoint/esign-portal/esign-portal-backend/internal/config"
	"sealpoint/esign-portal/esign-portal-backend/internal/contracts"
	"sealpoint/esign-portal/esign-portal-backend/internal/verification"
	"sealpoint/esign-portal/esign-portal-backend/pkg/clock"
	"sealpoint/esign-portal/esign-portal-backend/pkg/storage"
)

// ReverifyWorker periodically re-runs integrity verification on completed
// contracts so that silent tampering of archived documents surfaces in the
// audit trail instead of waiting for someone to ask for a report.
type ReverifyWorker struct {
	repo          contracts.Repository
	verifications *verification.Service
	logger        *zap.Logger
	maxConcurrent int
}

func NewReverifyWorker(repo contracts.Repository, verifications *verification.Service, logger *zap.Logger, maxConcurrent int) *ReverifyWorker {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &ReverifyWorker{
		repo:          repo,
		verifications: verifications,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// Run verifies every completed contract once.
func (w *ReverifyWorker) Run(ctx context.Context) {
	status := contracts.StatusCompleted
	completed, err := w.repo.ListContracts(ctx, &status)
	if err != nil {
		w.logger.Error("Failed to list completed contracts", zap.Error(err))
		return
	}

	if len(completed) == 0 {
		return
	}

	w.logger.Info("Re-verifying completed contracts", zap.Int("count", len(completed)))

	sem := make(chan struct{}, w.maxConcurrent)

	for _, contract := range completed {
		sem <- struct{}{} // Acquire semaphore

		go func(c contracts.Contract) {
			defer func() { <-sem }() // Release semaphore

			report, err := w.verifications.RunReport(ctx, c.ID)
			if err != nil {
				w.logger.Error("Re-verification failed",
					zap.String("contract_id", c.ID.String()),
					zap.Error(err))
				return
			}

			if report.OverallStatus != verification.StatusValid {
				w.logger.Warn("Re-verification found problems",
					zap.String("contract_id", c.ID.String()),
					zap.String("contract_number", c.ContractNumber),
					zap.Int("failed_checks", report.Summary.Failed))
				return
			}

			w.logger.Debug("Contract verified",
				zap.String("contract_id", c.ID.String()))
		}(contract)
	}

	// Wait for all goroutines to finish
	for i := 0; i < w.maxConcurrent; i++ {
		sem <- struct{}{}
	}
}

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	gormDB, err := gorm.Open(gormpostgres.Open(dbURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	auditRepo := audit.NewRepository(gormDB)
	if err := auditRepo.Migrate(); err != nil {
		logger.Fatal("Failed to migrate audit tables", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s3Client, err := storage.NewS3Client(ctx, cfg.Storage.Region)
	if err != nil {
		logger.Fatal("Failed to initialize S3 client", zap.Error(err))
	}

	repo := contracts.NewRepository(db)
	engine := verification.NewEngine(s3Client, clock.New(), logger)
	verifications := verification.NewService(repo, engine, auditRepo, logger)

	worker := NewReverifyWorker(repo, verifications, logger, cfg.Worker.MaxConcurrent)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Worker.ReverifySchedule, func() {
		worker.Run(ctx)
	}); err != nil {
		logger.Fatal("Failed to schedule re-verification job",
			zap.String("schedule", cfg.Worker.ReverifySchedule),
			zap.Error(err))
	}

	logger.Info("Re-verification worker starting",
		zap.String("schedule", cfg.Worker.ReverifySchedule),
		zap.Int("max_concurrent", cfg.Worker.MaxConcurrent))
	scheduler.Start()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received")
	cancel()
	<-scheduler.Stop().Done()

	logger.Info("Re-verification worker stopped")
}
