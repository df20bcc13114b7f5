package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/reachforge/campaign-edge-service/internal/domain"
	"github.com/reachforge/campaign-edge-service/internal/store"
)

// MockResender is a mock implementation of Resender
type MockResender struct {
	mock.Mock
}

func (m *MockResender) TrySend(ctx context.Context, key string, msg *domain.QueueMessage) error {
	args := m.Called(ctx, key, msg)
	return args.Error(0)
}

// MockFallback is a mock implementation of FallbackLister
type MockFallback struct {
	mock.Mock
}

func (m *MockFallback) List(ctx context.Context, limit int) ([]store.FallbackEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.FallbackEntry), args.Error(1)
}

func (m *MockFallback) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func parkedEntry(key, sessionID string) store.FallbackEntry {
	return store.FallbackEntry{
		Key:       key,
		SessionID: sessionID,
		Payload:   []byte(`{"type":"event","data":{"event_id":"e1"},"timestamp":1700000000}`),
	}
}

func TestJob_ProcessFallbackReplaysAndDeletes(t *testing.T) {
	gateway := new(MockResender)
	fallback := new(MockFallback)

	fallback.On("List", mock.Anything, 100).Return([]store.FallbackEntry{
		parkedEntry("fallback:1:sess-1", "sess-1"),
		parkedEntry("fallback:2:sess-2", "sess-2"),
	}, nil)
	gateway.On("TrySend", mock.Anything, "sess-1", mock.Anything).Return(nil)
	gateway.On("TrySend", mock.Anything, "sess-2", mock.Anything).Return(nil)
	fallback.On("Delete", mock.Anything, "fallback:1:sess-1").Return(nil)
	fallback.On("Delete", mock.Anything, "fallback:2:sess-2").Return(nil)

	job := NewJob(gateway, fallback, 100, zap.NewNop())
	processed, failed := job.ProcessFallback(context.Background())

	assert.Equal(t, 2, processed)
	assert.Equal(t, 0, failed)
	gateway.AssertExpectations(t)
	fallback.AssertExpectations(t)
}

func TestJob_FailedReplayStaysParked(t *testing.T) {
	gateway := new(MockResender)
	fallback := new(MockFallback)

	fallback.On("List", mock.Anything, 100).Return([]store.FallbackEntry{
		parkedEntry("fallback:1:sess-1", "sess-1"),
	}, nil)
	gateway.On("TrySend", mock.Anything, "sess-1", mock.Anything).Return(errors.New("all shards down"))

	job := NewJob(gateway, fallback, 100, zap.NewNop())
	processed, failed := job.ProcessFallback(context.Background())

	assert.Equal(t, 0, processed)
	assert.Equal(t, 1, failed)
	fallback.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestJob_UndecodableEntryIsDropped(t *testing.T) {
	gateway := new(MockResender)
	fallback := new(MockFallback)

	fallback.On("List", mock.Anything, 100).Return([]store.FallbackEntry{
		{Key: "fallback:1:sess-1", SessionID: "sess-1", Payload: []byte("not json")},
	}, nil)
	fallback.On("Delete", mock.Anything, "fallback:1:sess-1").Return(nil)

	job := NewJob(gateway, fallback, 100, zap.NewNop())
	processed, failed := job.ProcessFallback(context.Background())

	assert.Equal(t, 0, processed)
	assert.Equal(t, 1, failed)
	gateway.AssertNotCalled(t, "TrySend", mock.Anything, mock.Anything, mock.Anything)
	fallback.AssertExpectations(t)
}

func TestJob_ListErrorIsAbsorbed(t *testing.T) {
	gateway := new(MockResender)
	fallback := new(MockFallback)

	fallback.On("List", mock.Anything, 100).Return(nil, errors.New("redis down"))

	job := NewJob(gateway, fallback, 100, zap.NewNop())
	processed, failed := job.ProcessFallback(context.Background())

	assert.Equal(t, 0, processed)
	assert.Equal(t, 0, failed)
}
