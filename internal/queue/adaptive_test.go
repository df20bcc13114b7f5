package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
)

// fakeSender fails the configured shard URLs and records delivery order.
type fakeSender struct {
	mu      sync.Mutex
	failing map[string]bool
	sent    map[string][][]byte
	order   []string
}

func newFakeSender(failing ...string) *fakeSender {
	f := &fakeSender{
		failing: make(map[string]bool),
		sent:    make(map[string][][]byte),
	}
	for _, url := range failing {
		f.failing[url] = true
	}
	return f
}

func (f *fakeSender) Send(_ context.Context, queueURL string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, queueURL)
	if f.failing[queueURL] {
		return errors.New("shard unavailable")
	}
	f.sent[queueURL] = append(f.sent[queueURL], body)
	return nil
}

func (f *fakeSender) totalSent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msgs := range f.sent {
		n += len(msgs)
	}
	return n
}

type fakeParker struct {
	mu     sync.Mutex
	parked map[string][][]byte
	err    error
}

func newFakeParker() *fakeParker {
	return &fakeParker{parked: make(map[string][][]byte)}
}

func (f *fakeParker) Park(_ context.Context, sessionID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.parked[sessionID] = append(f.parked[sessionID], payload)
	return nil
}

func (f *fakeParker) totalParked() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msgs := range f.parked {
		n += len(msgs)
	}
	return n
}

var testShards = []string{
	"http://sqs/queue-0",
	"http://sqs/queue-1",
	"http://sqs/queue-2",
}

func testMsg() *domain.QueueMessage {
	return domain.NewQueueMessage(domain.RecordEvent, []byte(`{"event_id":"e1"}`), 1700000000)
}

func TestGateway_ShardIsStablePerKey(t *testing.T) {
	g := NewGateway(newFakeSender(), testShards, newFakeParker(), zap.NewNop())

	first := g.shardFor("sess-1")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, g.shardFor("sess-1"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, len(testShards))
}

func TestGateway_EnqueueDeliversToHomeShard(t *testing.T) {
	sender := newFakeSender()
	g := NewGateway(sender, testShards, newFakeParker(), zap.NewNop())

	g.Enqueue(context.Background(), "sess-1", testMsg())

	home := testShards[g.shardFor("sess-1")]
	assert.Len(t, sender.sent[home], 1)
	assert.Equal(t, 1, sender.totalSent())
}

func TestGateway_FailoverToNextShard(t *testing.T) {
	g0 := NewGateway(newFakeSender(), testShards, newFakeParker(), zap.NewNop())
	home := g0.shardFor("sess-1")

	sender := newFakeSender(testShards[home])
	g := NewGateway(sender, testShards, newFakeParker(), zap.NewNop())

	g.Enqueue(context.Background(), "sess-1", testMsg())

	next := testShards[(home+1)%len(testShards)]
	assert.Len(t, sender.sent[next], 1)
	assert.Equal(t, []string{testShards[home], next}, sender.order)
}

func TestGateway_AllShardsFailParksInFallback(t *testing.T) {
	sender := newFakeSender(testShards...)
	parker := newFakeParker()
	g := NewGateway(sender, testShards, parker, zap.NewNop())

	g.Enqueue(context.Background(), "sess-1", testMsg())

	assert.Equal(t, 0, sender.totalSent())
	assert.Len(t, sender.order, len(testShards), "every shard must be attempted")
	assert.Len(t, parker.parked["sess-1"], 1)
}

func TestGateway_TrySendDoesNotPark(t *testing.T) {
	sender := newFakeSender(testShards...)
	parker := newFakeParker()
	g := NewGateway(sender, testShards, parker, zap.NewNop())

	err := g.TrySend(context.Background(), "sess-1", testMsg())

	assert.Error(t, err)
	assert.Equal(t, 0, parker.totalParked())
}

func TestGateway_EnqueueBatchDeliversAll(t *testing.T) {
	sender := newFakeSender()
	g := NewGateway(sender, testShards, newFakeParker(), zap.NewNop())

	msgs := make([]*domain.QueueMessage, 120)
	for i := range msgs {
		msgs[i] = testMsg()
	}

	g.EnqueueBatch(context.Background(), "sess-1", msgs)

	assert.Equal(t, 120, sender.totalSent())
}

func TestGateway_EnqueueBatchSplitsAcrossFallback(t *testing.T) {
	sender := newFakeSender(testShards...)
	parker := newFakeParker()
	g := NewGateway(sender, testShards, parker, zap.NewNop())

	msgs := []*domain.QueueMessage{testMsg(), testMsg(), testMsg()}
	g.EnqueueBatch(context.Background(), "sess-1", msgs)

	assert.Equal(t, 3, parker.totalParked())
}
