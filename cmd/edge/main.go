package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/config"
	"github.com/reachforge/campaign-edge-service/internal/handler"
	"github.com/reachforge/campaign-edge-service/internal/logger"
	"github.com/reachforge/campaign-edge-service/internal/queue"
	"github.com/reachforge/campaign-edge-service/internal/queue/sqs"
	"github.com/reachforge/campaign-edge-service/internal/service"
	"github.com/reachforge/campaign-edge-service/internal/store"
	"github.com/reachforge/campaign-edge-service/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.ServiceEnvironment, "edge")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting edge service",
		zap.String("environment", cfg.ServiceEnvironment),
		zap.String("port", cfg.ServiceAPIPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Redis client
	redisClient, err := store.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis client", zap.Error(err))
		}
	}()

	// Initialize SQS client and the adaptive gateway
	sqsClient, err := sqs.NewClient(ctx, cfg.SQSRegion, cfg.SQSEndpoint, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	fallback := store.NewFallbackStore(redisClient)
	gateway := queue.NewGateway(sqsClient, cfg.QueueURLs(), fallback, log)

	// Initialize stores and services
	campaigns := store.NewCampaignStore(redisClient)
	assets := store.NewAssetStore(redisClient)
	clickTokens := store.NewClickTokenStore(redisClient)
	verifier := token.NewVerifier(cfg.TrackingTokenSecret)

	tracking := service.NewTrackingService(gateway, clickTokens, verifier,
		cfg.SessionFlushThreshold, cfg.SessionDefaultTimeoutMin, cfg.ServiceEnvironment, log)
	abtests := service.NewABTestService(campaigns, log)
	campaignService := service.NewCampaignService(campaigns, assets, abtests, gateway, cfg.ServiceEnvironment, log)

	h := handler.NewHandler(tracking, campaignService, abtests, log)

	// Evict expired session actors and retired test actors so the
	// registries stay bounded between deploys.
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.ActorReapIntervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				tracking.ReapExpiredSessions(now, time.Duration(cfg.SessionReapGraceMin)*time.Minute)
				abtests.ReapCompletedTests(now, time.Duration(cfg.TestRetentionHours)*time.Hour)
			}
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServiceAPIPort),
		Handler: h,
	}

	go func() {
		log.Info("Edge server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start edge server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down edge service gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Edge server shutdown error", zap.Error(err))
	}
}
