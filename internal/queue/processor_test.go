package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/writers"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
)

func nextPending(t *testing.T, p *pipeline) *models.Job {
	t.Helper()
	job, err := p.storage.JobStorage().NextPending(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}

func TestProcessor_GenericSummary(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	id := p.enqueue(t, "https://a.com", "Page text.")
	p.summarizer.On("Summarize", mock.Anything, "Page text.").Return("A short summary.", nil).Once()

	job := nextPending(t, p)
	require.NoError(t, p.processor.Process(ctx, job))

	stored := p.job(t, id)
	assert.Equal(t, models.JobStatusComplete, stored.Status)
	assert.Equal(t, 0, stored.Attempts)
	assert.Equal(t, models.ProcessingGenericSummary, job.ProcessingKind)
	assert.Nil(t, stored.Rule)

	results := p.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, "A short summary.", results[0].Summary)
	assert.Equal(t, "https://a.com", results[0].SourceKey)
	assert.Equal(t, "Title https://a.com", results[0].Title)
	assert.False(t, results[0].HasCustomData())
	assert.NotEmpty(t, results[0].ID)

	cached, err := p.cache.Lookup(ctx, "https://a.com")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, results[0].ID, cached.ID)

	assert.Equal(t, []interfaces.EventType{interfaces.EventResultSaved}, p.events.types())
	p.summarizer.AssertExpectations(t)
	p.summarizer.AssertNotCalled(t, "ExtractFields", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessor_CustomExtraction(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	_, err := p.rules.Add(ctx, "https://blog.example.com/*", `{"author":"Post author"}`)
	require.NoError(t, err)

	id := p.enqueue(t, "https://blog.example.com/post/1", "Written by Ada.")
	p.summarizer.On("Summarize", mock.Anything, "Written by Ada.").Return("A post.", nil).Once()
	p.summarizer.On("ExtractFields", mock.Anything, "Written by Ada.", `{"author":"Post author"}`).
		Return([]byte(`{"author":"Ada"}`), nil).Once()

	job := nextPending(t, p)
	require.NoError(t, p.processor.Process(ctx, job))

	assert.Equal(t, models.ProcessingCustomExtraction, job.ProcessingKind)
	require.NotNil(t, job.Rule)

	stored := p.job(t, id)
	assert.Equal(t, models.JobStatusComplete, stored.Status)
	assert.Nil(t, stored.Rule, "matched rule is never persisted")

	results := p.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, "A post.", results[0].Summary)
	assert.JSONEq(t, `{"author":"Ada"}`, string(results[0].CustomData))
	p.summarizer.AssertExpectations(t)
}

func TestProcessor_DualPathPartialFailure(t *testing.T) {
	tests := []struct {
		name       string
		summaryErr error
		extractErr error
	}{
		{name: "extraction fails", extractErr: errors.New("invalid extraction")},
		{name: "summary fails", summaryErr: errors.New("service unavailable")},
		{name: "both fail", summaryErr: errors.New("a"), extractErr: errors.New("b")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t)
			ctx := context.Background()

			_, err := p.rules.Add(ctx, "https://x.com/*", `{"price":"Price"}`)
			require.NoError(t, err)
			id := p.enqueue(t, "https://x.com/item", "content")

			p.summarizer.On("Summarize", mock.Anything, "content").Return("summary", tt.summaryErr)
			p.summarizer.On("ExtractFields", mock.Anything, "content", mock.Anything).Return([]byte(`{"price":"1"}`), tt.extractErr)

			require.NoError(t, p.processor.Process(ctx, nextPending(t, p)))

			stored := p.job(t, id)
			assert.Equal(t, models.JobStatusPending, stored.Status)
			assert.Equal(t, 1, stored.Attempts, "one failed attempt increments attempts exactly once")
			assert.Empty(t, p.results(t))
			assert.Equal(t, 0, p.cacheCount(t))
			assert.Equal(t, []interfaces.EventType{interfaces.EventJobRetry}, p.events.types())
		})
	}
}

func TestProcessor_CacheHitSkipsService(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	first := &models.Result{ID: "r-1", SourceKey: "https://a.com", Title: "A", Summary: "Cached summary."}
	require.NoError(t, p.cache.Remember(ctx, first))

	id := p.enqueue(t, "https://a.com", "different content")
	require.NoError(t, p.processor.Process(ctx, nextPending(t, p)))

	stored := p.job(t, id)
	assert.Equal(t, models.JobStatusComplete, stored.Status)

	results := p.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, "r-1", results[0].ID)
	assert.Equal(t, "Cached summary.", results[0].Summary)
	assert.Equal(t, 1, p.cacheCount(t))

	p.summarizer.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
}

func TestProcessor_AttemptCap(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	id := p.enqueue(t, "https://a.com", "content")
	p.summarizer.On("Summarize", mock.Anything, "content").Return("", errors.New("timeout"))

	for want := 1; want <= DefaultMaxAttempts; want++ {
		job := p.job(t, id)
		require.NoError(t, p.processor.Process(ctx, job))

		stored := p.job(t, id)
		assert.Equal(t, want, stored.Attempts)
		if want < DefaultMaxAttempts {
			assert.Equal(t, models.JobStatusPending, stored.Status)
		} else {
			assert.Equal(t, models.JobStatusFailed, stored.Status)
		}
	}

	assert.Equal(t, []interfaces.EventType{
		interfaces.EventJobRetry,
		interfaces.EventJobRetry,
		interfaces.EventJobFailed,
	}, p.events.types())
}

func TestProcessor_StatusWriteFailureIsReturned(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	logger := arbor.NewLogger().WithWriters([]writers.IWriter{})

	p.enqueue(t, "https://a.com", "content")
	job := nextPending(t, p)

	jobs := &failingJobStorage{JobStorage: p.storage.JobStorage(), err: errors.New("disk full")}
	processor := NewProcessor(jobs, p.storage.ResultStorage(), p.cache, p.rules, p.summarizer, nil, nil, 0, logger)

	err := processor.Process(ctx, job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	p.summarizer.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything)
}

func TestProcessor_CancelledCallerDoesNotChargeAttempt(t *testing.T) {
	p := newPipeline(t)

	id := p.enqueue(t, "https://a.com", "content")
	attempts := DefaultMaxAttempts - 1
	require.NoError(t, p.storage.JobStorage().SetStatus(context.Background(), id, models.JobStatusPending, &attempts))

	entered := make(chan struct{})
	release := make(chan struct{})
	var sawCancel atomic.Bool
	p.summarizer.On("Summarize", mock.Anything, "content").
		Run(func(args mock.Arguments) {
			close(entered)
			<-release
			sawCancel.Store(args.Get(0).(context.Context).Err() != nil)
		}).
		Return("A summary.", nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	job := p.job(t, id)
	done := make(chan error, 1)
	go func() { done <- p.processor.Process(ctx, job) }()

	<-entered
	cancel()
	close(release)
	require.NoError(t, <-done)

	assert.False(t, sawCancel.Load(), "the service call must not see the caller's cancellation")
	stored := p.job(t, id)
	assert.Equal(t, models.JobStatusComplete, stored.Status)
	assert.Equal(t, attempts, stored.Attempts)
	assert.Len(t, p.results(t), 1)
}

func TestProcessor_PanicCountsAsFailedAttempt(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	id := p.enqueue(t, "https://a.com", "content")
	p.summarizer.On("Summarize", mock.Anything, "content").
		Run(func(args mock.Arguments) { panic("summarizer exploded") }).
		Return("", nil).Once()

	job := nextPending(t, p)
	require.NoError(t, p.processor.Process(ctx, job))

	stored := p.job(t, id)
	assert.Equal(t, models.JobStatusPending, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, []interfaces.EventType{interfaces.EventJobRetry}, p.events.types())
	assert.Empty(t, p.results(t))
}

func TestProcessor_DualPathCallsRunConcurrently(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	_, err := p.rules.Add(ctx, "https://blog.example.com/*", `{"author":"Post author"}`)
	require.NoError(t, err)
	p.enqueue(t, "https://blog.example.com/post/1", "Written by Ada.")

	// Each call waits for the other to start; run back to back they would time out
	summaryEntered := make(chan struct{})
	extractEntered := make(chan struct{})
	waitFor := func(ch <-chan struct{}) {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			panic("calls did not overlap")
		}
	}

	p.summarizer.On("Summarize", mock.Anything, "Written by Ada.").
		Run(func(args mock.Arguments) {
			close(summaryEntered)
			waitFor(extractEntered)
		}).
		Return("A post.", nil).Once()
	p.summarizer.On("ExtractFields", mock.Anything, "Written by Ada.", `{"author":"Post author"}`).
		Run(func(args mock.Arguments) {
			close(extractEntered)
			waitFor(summaryEntered)
		}).
		Return([]byte(`{"author":"Ada"}`), nil).Once()

	job := nextPending(t, p)
	require.NoError(t, p.processor.Process(ctx, job))

	assert.Equal(t, models.JobStatusComplete, p.job(t, job.ID).Status)
	results := p.results(t)
	require.Len(t, results, 1)
	assert.Equal(t, "A post.", results[0].Summary)
	assert.JSONEq(t, `{"author":"Ada"}`, string(results[0].CustomData))
}

func TestProcessor_RulesAreReadAgainOnRetry(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	rule, err := p.rules.Add(ctx, "https://blog.example.com/*", `{"author":"Post author"}`)
	require.NoError(t, err)
	id := p.enqueue(t, "https://blog.example.com/post/1", "Written by Ada.")

	p.summarizer.On("Summarize", mock.Anything, "Written by Ada.").Return("A post.", nil).Twice()
	p.summarizer.On("ExtractFields", mock.Anything, "Written by Ada.", `{"author":"Post author"}`).
		Return(nil, errors.New("rate limited")).Once()

	first := p.job(t, id)
	require.NoError(t, p.processor.Process(ctx, first))
	assert.Equal(t, models.ProcessingCustomExtraction, first.ProcessingKind)
	assert.Equal(t, models.JobStatusPending, p.job(t, id).Status)

	// The rule is removed before the retry
	require.NoError(t, p.rules.Delete(ctx, rule.ID))

	second := p.job(t, id)
	require.NoError(t, p.processor.Process(ctx, second))
	assert.Equal(t, models.ProcessingGenericSummary, second.ProcessingKind)
	assert.Nil(t, second.Rule)

	stored := p.job(t, id)
	assert.Equal(t, models.JobStatusComplete, stored.Status)
	assert.Equal(t, 1, stored.Attempts)

	results := p.results(t)
	require.Len(t, results, 1)
	assert.False(t, results[0].HasCustomData())
	p.summarizer.AssertExpectations(t)
}
