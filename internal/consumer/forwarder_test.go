package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/sink"
)

// MockIngestor is a mock implementation of sink.Ingestor
type MockIngestor struct {
	mock.Mock
	mu sync.Mutex
}

func (m *MockIngestor) IngestEvents(ctx context.Context, records []*domain.EventRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, records)
	return args.Int(0), args.Error(1)
}

func (m *MockIngestor) IngestSessions(ctx context.Context, records []*domain.SessionRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, records)
	return args.Int(0), args.Error(1)
}

func (m *MockIngestor) IngestTraffic(ctx context.Context, records []*domain.TrafficRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, records)
	return args.Int(0), args.Error(1)
}

func (m *MockIngestor) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIngestor) Close() error {
	args := m.Called()
	return args.Error(0)
}

func eventRecord(id string) *Record {
	return &Record{Type: domain.RecordEvent, Event: &domain.EventRecord{EventID: id}}
}

func sessionRecord(id string) *Record {
	return &Record{Type: domain.RecordSession, Session: &domain.SessionRecord{SessionID: id}}
}

func testForwarderConfig() ForwarderConfig {
	return ForwarderConfig{
		MaxBatchSize:   3,
		FlushTimeout:   10 * time.Second,
		RetryBaseDelay: time.Millisecond,
		RetryMaxDelay:  5 * time.Millisecond,
		MaxRetries:     3,
	}
}

func TestForwarder_BatchSizeThresholdPartitionsByType(t *testing.T) {
	mockSink := new(MockIngestor)
	fwd := NewForwarder(mockSink, testForwarderConfig(), zap.NewNop())

	mockSink.On("IngestEvents", mock.Anything, mock.MatchedBy(func(records []*domain.EventRecord) bool {
		return len(records) == 2
	})).Return(2, nil)
	mockSink.On("IngestSessions", mock.Anything, mock.MatchedBy(func(records []*domain.SessionRecord) bool {
		return len(records) == 1
	})).Return(1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Record, 5)
	go fwd.Start(ctx, in)

	in <- eventRecord("e1")
	in <- sessionRecord("s1")
	in <- eventRecord("e2")

	time.Sleep(100 * time.Millisecond)

	mockSink.AssertExpectations(t)
	mockSink.AssertNotCalled(t, "IngestTraffic", mock.Anything, mock.Anything)
}

func TestForwarder_TimeoutFlush(t *testing.T) {
	mockSink := new(MockIngestor)
	cfg := testForwarderConfig()
	cfg.MaxBatchSize = 10
	cfg.FlushTimeout = 50 * time.Millisecond
	fwd := NewForwarder(mockSink, cfg, zap.NewNop())

	mockSink.On("IngestEvents", mock.Anything, mock.MatchedBy(func(records []*domain.EventRecord) bool {
		return len(records) == 2
	})).Return(2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *Record, 5)
	go fwd.Start(ctx, in)

	in <- eventRecord("e1")
	in <- eventRecord("e2")

	time.Sleep(200 * time.Millisecond)

	mockSink.AssertExpectations(t)
}

func TestForwarder_FinalFlushOnChannelClose(t *testing.T) {
	mockSink := new(MockIngestor)
	fwd := NewForwarder(mockSink, testForwarderConfig(), zap.NewNop())

	mockSink.On("IngestEvents", mock.Anything, mock.Anything).Return(1, nil)

	in := make(chan *Record, 5)
	done := make(chan struct{})
	go func() {
		fwd.Start(context.Background(), in)
		close(done)
	}()

	in <- eventRecord("e1")
	close(in)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop after channel close")
	}
	mockSink.AssertExpectations(t)
}

func TestForwarder_RetriesThenSucceeds(t *testing.T) {
	mockSink := new(MockIngestor)
	fwd := NewForwarder(mockSink, testForwarderConfig(), zap.NewNop())

	mockSink.On("IngestEvents", mock.Anything, mock.Anything).Return(0, errors.New("sink unavailable")).Twice()
	mockSink.On("IngestEvents", mock.Anything, mock.Anything).Return(1, nil).Once()

	in := make(chan *Record, 5)
	done := make(chan struct{})
	go func() {
		fwd.Start(context.Background(), in)
		close(done)
	}()

	in <- eventRecord("e1")
	close(in)
	<-done

	mockSink.AssertExpectations(t)
	mockSink.AssertNumberOfCalls(t, "IngestEvents", 3)
}

func TestForwarder_DropsBatchAfterExhaustingRetries(t *testing.T) {
	mockSink := new(MockIngestor)
	fwd := NewForwarder(mockSink, testForwarderConfig(), zap.NewNop())

	mockSink.On("IngestEvents", mock.Anything, mock.Anything).Return(0, errors.New("sink unavailable"))

	in := make(chan *Record, 5)
	done := make(chan struct{})
	go func() {
		fwd.Start(context.Background(), in)
		close(done)
	}()

	in <- eventRecord("e1")
	close(in)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not give up on a dead sink")
	}

	// 1 initial attempt + MaxRetries
	mockSink.AssertNumberOfCalls(t, "IngestEvents", 4)
}

func TestForwarder_RateLimitHonorsRetryAfter(t *testing.T) {
	mockSink := new(MockIngestor)
	fwd := NewForwarder(mockSink, testForwarderConfig(), zap.NewNop())

	rlErr := &sink.RateLimitError{RetryAfter: 50 * time.Millisecond, Limit: 10, Remaining: 0}
	mockSink.On("IngestEvents", mock.Anything, mock.Anything).Return(0, rlErr).Once()
	mockSink.On("IngestEvents", mock.Anything, mock.Anything).Return(1, nil).Once()

	in := make(chan *Record, 5)
	start := time.Now()
	done := make(chan struct{})
	go func() {
		fwd.Start(context.Background(), in)
		close(done)
	}()

	in <- eventRecord("e1")
	close(in)
	<-done

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond,
		"second attempt must wait out Retry-After")
	mockSink.AssertExpectations(t)
}
