// Package consumer drains the queue shards and forwards record batches to
// the analytics sink. The pipeline is staged: per-shard receivers feed a
// parser stage, which acks and decodes messages and feeds the forwarder.
package consumer

import (
	"encoding/json"
	"fmt"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// Record is the tagged union decoded from one queue message. Exactly one of
// the payload fields is set, matching Type.
type Record struct {
	Type    domain.RecordType
	Event   *domain.EventRecord
	Session *domain.SessionRecord
	Traffic *domain.TrafficRecord
}

// DecodeRecord validates the envelope's type tag and decodes its payload.
// Any failure marks the message malformed.
func DecodeRecord(body []byte) (*Record, error) {
	var msg domain.QueueMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue message: %w", err)
	}

	rec := &Record{Type: msg.Type}
	switch msg.Type {
	case domain.RecordEvent:
		rec.Event = &domain.EventRecord{}
		if err := json.Unmarshal(msg.Data, rec.Event); err != nil {
			return nil, fmt.Errorf("failed to decode event record: %w", err)
		}
	case domain.RecordSession:
		rec.Session = &domain.SessionRecord{}
		if err := json.Unmarshal(msg.Data, rec.Session); err != nil {
			return nil, fmt.Errorf("failed to decode session record: %w", err)
		}
	case domain.RecordTraffic:
		rec.Traffic = &domain.TrafficRecord{}
		if err := json.Unmarshal(msg.Data, rec.Traffic); err != nil {
			return nil, fmt.Errorf("failed to decode traffic record: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown record type %q", msg.Type)
	}
	return rec, nil
}
