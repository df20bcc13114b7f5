package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServiceEnvironment string `envconfig:"SERVICE_ENVIRONMENT" required:"true"`
	ServiceAPIPort     string `envconfig:"SERVICE_API_PORT" default:"8080"`
	ServiceHost        string `envconfig:"SERVICE_HOST" default:"localhost:8080"`

	RedisAddr     string `envconfig:"REDIS_ADDR" required:"true"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SQSEndpoint string `envconfig:"SQS_ENDPOINT"`
	SQSRegion   string `envconfig:"SQS_REGION" required:"true"`
	// SQSQueueURLs is the comma-separated list of shard queue URLs. The
	// gateway hashes session ids across them; consumers drain all of them.
	SQSQueueURLs string `envconfig:"SQS_QUEUE_URLS" required:"true"`

	SinkDriver string `envconfig:"SINK_DRIVER" default:"tinybird"`

	TinybirdBaseURL string `envconfig:"TINYBIRD_BASE_URL"`
	TinybirdToken   string `envconfig:"TINYBIRD_TOKEN"`

	ClickHouseHost            string `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePort            string `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	ClickHouseDB              string `envconfig:"CLICKHOUSE_DB" default:"analytics"`
	ClickHouseUser            string `envconfig:"CLICKHOUSE_USER" default:""`
	ClickHousePassword        string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	ClickHouseUseTLS          bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	ClickHouseMaxOpenConns    int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	ClickHouseMaxIdleConns    int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ClickHouseConnLifetimeSec int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`

	SessionFlushThreshold    int    `envconfig:"SESSION_FLUSH_THRESHOLD" default:"5"`
	SessionDefaultTimeoutMin int    `envconfig:"SESSION_DEFAULT_TIMEOUT_MIN" default:"30"`
	ActorReapIntervalSec     int    `envconfig:"ACTOR_REAP_INTERVAL_SEC" default:"300"`
	SessionReapGraceMin      int    `envconfig:"SESSION_REAP_GRACE_MIN" default:"60"`
	TestRetentionHours       int    `envconfig:"TEST_RETENTION_HOURS" default:"24"`
	ConsumerBatchSizeMax     int    `envconfig:"CONSUMER_BATCH_SIZE_MAX" default:"500"`
	ConsumerBatchTimeoutSec  int    `envconfig:"CONSUMER_BATCH_TIMEOUT_SEC" default:"10"`
	ConsumerRetryBaseDelayMs int    `envconfig:"CONSUMER_RETRY_BASE_DELAY_MS" default:"500"`
	ConsumerRetryMaxDelaySec int    `envconfig:"CONSUMER_RETRY_MAX_DELAY_SEC" default:"30"`
	ConsumerMaxRetries       int    `envconfig:"CONSUMER_MAX_RETRIES" default:"3"`
	ConsumerHealthCheckPort  string `envconfig:"CONSUMER_HEALTH_CHECK_PORT" default:"8081"`
	RecoverySweepIntervalSec int    `envconfig:"RECOVERY_SWEEP_INTERVAL_SEC" default:"60"`
	RecoverySweepLimit       int    `envconfig:"RECOVERY_SWEEP_LIMIT" default:"100"`

	TrackingTokenSecret string `envconfig:"TRACKING_TOKEN_SECRET" required:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if cfg.SinkDriver != "tinybird" && cfg.SinkDriver != "clickhouse" {
		return nil, fmt.Errorf("unsupported sink driver: %s", cfg.SinkDriver)
	}

	if len(cfg.QueueURLs()) == 0 {
		return nil, fmt.Errorf("SQS_QUEUE_URLS must name at least one queue")
	}

	return &cfg, nil
}

// QueueURLs splits the configured shard list.
func (c *Config) QueueURLs() []string {
	parts := strings.Split(c.SQSQueueURLs, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
