// Package tinybird implements the NDJSON events API driver for the
// analytics sink.
package tinybird

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/sink"
)

// Data source names on the Tinybird side. One data source per record type.
const (
	eventsSource   = "analytics_events"
	sessionsSource = "analytics_sessions"
	trafficSource  = "analytics_traffic"
)

// Client posts NDJSON batches to the Tinybird events endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL, token string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
}

// ingestResponse is the accepted-rows accounting Tinybird returns on 200/202.
type ingestResponse struct {
	SuccessfulRows  int `json:"successful_rows"`
	QuarantinedRows int `json:"quarantined_rows"`
}

func (c *Client) IngestEvents(ctx context.Context, records []*domain.EventRecord) (int, error) {
	return ingest(ctx, c, eventsSource, records)
}

func (c *Client) IngestSessions(ctx context.Context, records []*domain.SessionRecord) (int, error) {
	return ingest(ctx, c, sessionsSource, records)
}

func (c *Client) IngestTraffic(ctx context.Context, records []*domain.TrafficRecord) (int, error) {
	return ingest(ctx, c, trafficSource, records)
}

func ingest[T any](ctx context.Context, c *Client, source string, records []T) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("failed to encode record for %s: %w", source, err)
		}
	}

	url := fmt.Sprintf("%s/v0/events?name=%s", c.baseURL, source)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request for %s: %w", source, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to post batch to %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, rateLimitError(resp)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("sink returned %d for %s: %s", resp.StatusCode, source, snippet)
	}

	var result ingestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// The batch was accepted; only the accounting is unreadable.
		c.log.Warn("Failed to decode ingest response",
			zap.String("source", source),
			zap.Error(err))
		return len(records), nil
	}

	if result.QuarantinedRows > 0 {
		c.log.Warn("Sink quarantined rows",
			zap.String("source", source),
			zap.Int("quarantined", result.QuarantinedRows))
	}
	return result.SuccessfulRows, nil
}

func rateLimitError(resp *http.Response) error {
	rlErr := &sink.RateLimitError{RetryAfter: time.Second}
	if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && v > 0 {
		rlErr.RetryAfter = time.Duration(v) * time.Second
	}
	if v, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit")); err == nil {
		rlErr.Limit = v
	}
	if v, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining")); err == nil {
		rlErr.Remaining = v
	}
	return rlErr
}

// Ping verifies the token against the datasources listing endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v0/datasources", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach sink: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sink health check returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
