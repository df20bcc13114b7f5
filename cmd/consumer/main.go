package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/config"
	"github.com/reachforge/campaign-edge-service/internal/consumer"
	"github.com/reachforge/campaign-edge-service/internal/logger"
	"github.com/reachforge/campaign-edge-service/internal/observability"
	"github.com/reachforge/campaign-edge-service/internal/queue"
	"github.com/reachforge/campaign-edge-service/internal/queue/sqs"
	"github.com/reachforge/campaign-edge-service/internal/sink"
	"github.com/reachforge/campaign-edge-service/internal/sink/clickhouse"
	"github.com/reachforge/campaign-edge-service/internal/sink/tinybird"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.ServiceEnvironment, "consumer")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting consumer service",
		zap.String("environment", cfg.ServiceEnvironment),
		zap.String("sink_driver", cfg.SinkDriver))

	ctx := context.Background()

	// Initialize the sink
	ingestor, err := newIngestor(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize sink", zap.Error(err))
	}
	defer func() {
		if err := ingestor.Close(); err != nil {
			log.Error("Failed to close sink", zap.Error(err))
		}
	}()

	// Initialize SQS client and bind each queue shard
	sqsClient, err := sqs.NewClient(ctx, cfg.SQSRegion, cfg.SQSEndpoint, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	urls := cfg.QueueURLs()
	shards := make([]queue.Consumer, 0, len(urls))
	for _, url := range urls {
		shards = append(shards, sqsClient.Bind(url))
	}

	// Initialize consumer
	c := consumer.NewConsumer(cfg, shards, ingestor, log)

	// Start health check and metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := ingestor.Ping(r.Context()); err != nil {
				log.Warn("Health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		mux.Handle("/metrics", observability.Handler())

		addr := ":" + cfg.ConsumerHealthCheckPort
		log.Info("Health check server starting", zap.String("address", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	// Start consumer
	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("Consumer starting", zap.Int("queue_shards", len(shards)))

	go func() {
		if err := c.Start(consumerCtx); err != nil {
			log.Fatal("Consumer error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down consumer gracefully")
	cancel()
}

// newIngestor selects the analytics sink from configuration. Tinybird is
// the managed default; ClickHouse serves self-hosted deployments and owns
// its schema.
func newIngestor(ctx context.Context, cfg *config.Config, log *zap.Logger) (sink.Ingestor, error) {
	switch cfg.SinkDriver {
	case "clickhouse":
		client, err := clickhouse.NewClient(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		repo := clickhouse.NewRepository(client, log)
		if err := repo.InitSchema(ctx); err != nil {
			return nil, err
		}
		log.Info("Database schema initialized")
		return repo, nil
	default:
		return tinybird.NewClient(cfg.TinybirdBaseURL, cfg.TinybirdToken, log), nil
	}
}
