package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aman-Sigroha/kyc/internal/api"
	"github.com/Aman-Sigroha/kyc/internal/challenge"
	"github.com/Aman-Sigroha/kyc/internal/config"
	"github.com/Aman-Sigroha/kyc/internal/service"
	"github.com/Aman-Sigroha/kyc/internal/stage"
	"github.com/Aman-Sigroha/kyc/internal/stage/local"
	"github.com/Aman-Sigroha/kyc/internal/stage/rekognition"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting KYC inference gateway",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("stage_backend", cfg.StageBackend),
	)

	backends, err := selectBackends(cfg)
	if err != nil {
		return err
	}

	registry := stage.NewRegistry(backends, stage.Options{
		SimilarityThreshold: cfg.SimilarityThreshold,
	})

	store := challenge.NewStore([]byte(cfg.HMACSecret), cfg.ChallengeTTL(), cfg.ChallengeCount)
	store.StartSweeper()

	kycService := service.NewKYCService(registry, service.ScoringConfig{
		SimilarityThreshold: cfg.SimilarityThreshold,
		PendingFaceFloor:    cfg.PendingFaceFloor,
		PendingOCRFloor:     cfg.PendingOCRFloor,
	}, logger)

	livenessService := service.NewLivenessService(registry, store, service.LivenessConfig{
		MinFrames:      cfg.LivenessMinFrames,
		FaceRatioFloor: cfg.LivenessFaceRatioFloor,
	}, logger)

	router := api.NewRouter(logger, cfg, &api.Dependencies{
		Registry:       registry,
		ChallengeStore: store,
		KYCService:     kycService,
		Liveness:       livenessService,
	})
	router.Setup()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	gracefulCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	<-gracefulCtx.Done()
	logger.Info("server stopped")

	return nil
}

func selectBackends(cfg *config.Config) (stage.Backends, error) {
	switch cfg.StageBackend {
	case "rekognition":
		return rekognition.New(rekognition.Config{Region: cfg.AWSRegion}), nil
	case "local", "":
		return local.New(), nil
	default:
		return nil, fmt.Errorf("unknown stage backend %q (supported: local, rekognition)", cfg.StageBackend)
	}
}
