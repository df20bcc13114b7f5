package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/config"
	"github.com/reachforge/campaign-edge-service/internal/logger"
	"github.com/reachforge/campaign-edge-service/internal/queue"
	"github.com/reachforge/campaign-edge-service/internal/queue/sqs"
	"github.com/reachforge/campaign-edge-service/internal/recovery"
	"github.com/reachforge/campaign-edge-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.ServiceEnvironment, "recovery")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting recovery service",
		zap.String("environment", cfg.ServiceEnvironment),
		zap.Int("sweep_interval_sec", cfg.RecoverySweepIntervalSec))

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

	// Initialize SQS client and the gateway used for replays
	sqsClient, err := sqs.NewClient(ctx, cfg.SQSRegion, cfg.SQSEndpoint, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	fallback := store.NewFallbackStore(redisClient)
	gateway := queue.NewGateway(sqsClient, cfg.QueueURLs(), fallback, log)

	job := recovery.NewJob(gateway, fallback, cfg.RecoverySweepLimit, log)
	job.Run(ctx, time.Duration(cfg.RecoverySweepIntervalSec)*time.Second)

	log.Info("Recovery service stopped")
}
