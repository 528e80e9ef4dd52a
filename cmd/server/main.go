package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/api"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/chain"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/config"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/db/repository"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/fingerprint"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/ocr"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/qr"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/services"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/internal/vision"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/pkg/logger"
	"github.com/Shahabaz322/cert-check-chain-main-sub000/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	config.LogConfig(zapLogger)

	database, err := db.Initialize(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	metricsCollector := metrics.NewMetricsCollector()

	certRepo := repository.NewCertificateRepository(database)
	logRepo := repository.NewVerificationLogRepository(database)
	instRepo := repository.NewInstitutionRepository(database)
	outboxRepo := repository.NewOutboxRepository(database)

	chainClient, err := chain.NewClient(cfg.Chain, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to chain RPC", zap.Error(err))
	}
	defer chainClient.Close()

	registry, err := chain.NewRegistry(common.HexToAddress(cfg.Chain.ContractAddress), chainClient)
	if err != nil {
		zapLogger.Fatal("Failed to bind registry contract", zap.Error(err))
	}

	var visionReader fingerprint.VisionReader
	if cfg.Vision.Enabled {
		visionReader = vision.NewClient(cfg.Vision, zapLogger)
	}
	pipeline := fingerprint.NewPipeline(
		cfg.Fingerprint,
		fingerprint.NewPDFTextExtractor(),
		fingerprint.NewFitzRasterizer(cfg.Fingerprint.RasterDPI),
		ocr.NewTesseractEngine("eng"),
		visionReader,
		zapLogger,
	)

	issuanceService := services.NewIssuanceService(
		certRepo, instRepo, outboxRepo, registry, pipeline, zapLogger, metricsCollector)
	verificationService := services.NewVerificationService(
		certRepo, logRepo, instRepo, outboxRepo, pipeline,
		qr.NewPDFExtractor(fingerprint.NewFitzRasterizer(cfg.Fingerprint.RasterDPI)),
		registry, cfg.Scoring, zapLogger, metricsCollector)
	outboxService := services.NewOutboxService(outboxRepo, certRepo, logRepo, cfg.Outbox, zapLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	outboxService.Start(ctx)

	router := api.NewRouter(cfg, zapLogger, metricsCollector,
		issuanceService, verificationService, certRepo, instRepo)
	router.SetupRoutes()

	go func() {
		if err := router.Run(":" + cfg.Server.Port); err != nil {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()
	zapLogger.Info("Server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	cancel()

	sqlDB, err := database.DB()
	if err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server gracefully stopped")
}
