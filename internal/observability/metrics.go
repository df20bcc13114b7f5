// Package observability exposes the Prometheus metrics shared by the edge
// API, the batch consumer, and the recovery sweeper.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Gateway metrics
	QueueSendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_queue_send_total",
			Help: "Queue send attempts by outcome (sent, failover, failed)",
		},
		[]string{"outcome"},
	)

	FallbackParkedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_fallback_parked_total",
			Help: "Messages parked in the fallback store after all shards failed",
		},
	)

	FallbackRecoveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_fallback_recovered_total",
			Help: "Parked messages successfully replayed to a queue shard",
		},
	)

	// Consumer metrics
	RecordsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_records_ingested_total",
			Help: "Records delivered to the analytics sink by record type",
		},
		[]string{"type"},
	)

	BatchesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_sink_batches_dropped_total",
			Help: "Acked batches abandoned after exhausting sink retries",
		},
	)

	MalformedDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_malformed_dropped_total",
			Help: "Malformed queue messages dropped after redelivery retries",
		},
	)

	RateLimitHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_sink_rate_limit_hits_total",
			Help: "429 responses observed from the analytics sink",
		},
	)
)

func init() {
	prometheus.MustRegister(QueueSendTotal)
	prometheus.MustRegister(FallbackParkedTotal)
	prometheus.MustRegister(FallbackRecoveredTotal)
	prometheus.MustRegister(RecordsIngestedTotal)
	prometheus.MustRegister(BatchesDroppedTotal)
	prometheus.MustRegister(MalformedDroppedTotal)
	prometheus.MustRegister(RateLimitHitsTotal)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
