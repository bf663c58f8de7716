package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"github.com/ternarybob/contextlog/internal/services/cache"
	"github.com/ternarybob/contextlog/internal/services/rules"
	"github.com/ternarybob/contextlog/internal/storage/badger"
)

// MockSummarizer is a mock implementation of Summarizer
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	args := m.Called(ctx, content)
	return args.String(0), args.Error(1)
}

func (m *MockSummarizer) ExtractFields(ctx context.Context, content string, fields string) ([]byte, error) {
	args := m.Called(ctx, content, fields)
	if data, ok := args.Get(0).([]byte); ok {
		return data, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSummarizer) GenerateRuleFields(ctx context.Context, description string) (string, error) {
	args := m.Called(ctx, description)
	return args.String(0), args.Error(1)
}

func (m *MockSummarizer) SessionReport(ctx context.Context, logText string) (string, error) {
	args := m.Called(ctx, logText)
	return args.String(0), args.Error(1)
}

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) Process(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// recordingEvents captures published events synchronously
type recordingEvents struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (r *recordingEvents) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}

func (r *recordingEvents) Publish(ctx context.Context, event interfaces.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	return r.Publish(ctx, event)
}

func (r *recordingEvents) Close() error {
	return nil
}

func (r *recordingEvents) types() []interfaces.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]interfaces.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// failingJobStorage wraps a JobStorage and fails every SetStatus call
type failingJobStorage struct {
	interfaces.JobStorage
	err error
}

func (f *failingJobStorage) SetStatus(ctx context.Context, id uint64, status models.JobStatus, attempts *int) error {
	return f.err
}

// pipeline is a processor and worker over an in-memory store
type pipeline struct {
	storage    interfaces.StorageManager
	rules      *rules.Service
	cache      *cache.Service
	events     *recordingEvents
	summarizer *MockSummarizer
	processor  *Processor
	worker     *Worker
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	logger := arbor.NewLogger().WithWriters([]writers.IWriter{})
	storage, err := badger.NewManager(logger, &common.BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	p := &pipeline{
		storage:    storage,
		rules:      rules.NewService(storage.RuleStorage(), nil, logger),
		cache:      cache.NewService(storage.CacheStorage(), logger),
		events:     &recordingEvents{},
		summarizer: &MockSummarizer{},
	}
	p.processor = NewProcessor(
		storage.JobStorage(),
		storage.ResultStorage(),
		p.cache,
		p.rules,
		p.summarizer,
		p.events,
		nil,
		DefaultMaxAttempts,
		logger,
	)
	p.worker = NewWorker(storage.JobStorage(), p.processor, p.events, nil, logger)
	return p
}

func (p *pipeline) enqueue(t *testing.T, sourceKey, content string) uint64 {
	t.Helper()
	id, err := p.storage.JobStorage().Enqueue(context.Background(), models.NewJob(sourceKey, "Title "+sourceKey, content))
	require.NoError(t, err)
	return id
}

func (p *pipeline) job(t *testing.T, id uint64) *models.Job {
	t.Helper()
	job, err := p.storage.JobStorage().GetJob(context.Background(), id)
	require.NoError(t, err)
	return job
}

func (p *pipeline) results(t *testing.T) []*models.Result {
	t.Helper()
	results, err := p.storage.ResultStorage().List(context.Background(), 0)
	require.NoError(t, err)
	return results
}

func (p *pipeline) cacheCount(t *testing.T) int {
	t.Helper()
	count, err := p.storage.CacheStorage().Count(context.Background())
	require.NoError(t, err)
	return count
}
