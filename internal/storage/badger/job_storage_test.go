package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
)

func intPtr(i int) *int { return &i }

func TestJobStorage_EnqueueAssignsIncreasingIDs(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	first := models.NewJob("https://example.com/1", "One", "content one")
	first.Status = models.JobStatusComplete // ignored on enqueue
	first.Attempts = 2

	id1, err := storage.Enqueue(ctx, first)
	require.NoError(t, err)
	id2, err := storage.Enqueue(ctx, models.NewJob("https://example.com/2", "Two", "content two"))
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
	assert.Equal(t, id1, first.ID)

	stored, err := storage.GetJob(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, stored.Status)
	assert.Equal(t, 0, stored.Attempts)
	assert.Equal(t, "https://example.com/1", stored.SourceKey)
}

func TestJobStorage_EnqueueRejectsInvalidJob(t *testing.T) {
	storage := newTestManager(t).JobStorage()

	_, err := storage.Enqueue(context.Background(), models.NewJob("", "t", "c"))
	assert.Error(t, err)
}

func TestJobStorage_EnqueueAcceptsEmptyContent(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	id, err := storage.Enqueue(ctx, models.NewJob("https://example.com/blank", "Blank", ""))
	require.NoError(t, err)

	stored, err := storage.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, stored.Status)
	assert.Empty(t, stored.Content)
}

func TestJobStorage_EnqueueDoesNotPersistRule(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	job := models.NewJob("https://example.com", "t", "c")
	job.Rule = &models.ExtractionRule{ID: "r", URLPattern: "*", Fields: "{}"}
	id, err := storage.Enqueue(ctx, job)
	require.NoError(t, err)

	stored, err := storage.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, stored.Rule)
}

func TestJobStorage_NextPendingIsFIFO(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	next, err := storage.NextPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, next, "empty queue returns nil without error")

	var ids []uint64
	for i := 0; i < 12; i++ {
		id, err := storage.Enqueue(ctx, models.NewJob("https://example.com/page", "t", "c"))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, want := range ids {
		next, err := storage.NextPending(ctx)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, want, next.ID)
		require.NoError(t, storage.SetStatus(ctx, next.ID, models.JobStatusComplete, nil))
	}

	next, err = storage.NextPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestJobStorage_NextPendingSkipsNonPending(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	id1, _ := storage.Enqueue(ctx, models.NewJob("https://a", "a", "a"))
	id2, _ := storage.Enqueue(ctx, models.NewJob("https://b", "b", "b"))

	require.NoError(t, storage.SetStatus(ctx, id1, models.JobStatusProcessing, nil))

	next, err := storage.NextPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, id2, next.ID)

	// A retried job becomes eligible again
	require.NoError(t, storage.SetStatus(ctx, id1, models.JobStatusPending, intPtr(1)))
	next, err = storage.NextPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, id1, next.ID)
	assert.Equal(t, 1, next.Attempts)
}

func TestJobStorage_NextPendingAfter(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	id1, _ := storage.Enqueue(ctx, models.NewJob("https://a", "a", "a"))
	id2, _ := storage.Enqueue(ctx, models.NewJob("https://b", "b", "b"))

	next, err := storage.NextPendingAfter(ctx, id1)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, id2, next.ID)

	next, err = storage.NextPendingAfter(ctx, id2)
	require.NoError(t, err)
	assert.Nil(t, next, "earlier pending jobs are not revisited")
}

func TestJobStorage_NextPendingAfterWalksManyJobsInOrder(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	var ids []uint64
	for i := 0; i < 40; i++ {
		id, err := storage.Enqueue(ctx, models.NewJob(fmt.Sprintf("https://example.com/%d", i), "t", "c"))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	// Every third job is already done and must be skipped
	for i := 0; i < len(ids); i += 3 {
		require.NoError(t, storage.SetStatus(ctx, ids[i], models.JobStatusComplete, nil))
	}

	var walked []uint64
	var cursor uint64
	for {
		next, err := storage.NextPendingAfter(ctx, cursor)
		require.NoError(t, err)
		if next == nil {
			break
		}
		assert.Equal(t, models.JobStatusPending, next.Status)
		walked = append(walked, next.ID)
		cursor = next.ID
	}

	var want []uint64
	for i, id := range ids {
		if i%3 != 0 {
			want = append(want, id)
		}
	}
	assert.Equal(t, want, walked)
}

func TestJobStorage_SetStatus(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	id, err := storage.Enqueue(ctx, models.NewJob("https://example.com", "t", "c"))
	require.NoError(t, err)

	require.NoError(t, storage.SetStatus(ctx, id, models.JobStatusProcessing, nil))
	job, err := storage.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, job.Status)
	assert.Equal(t, 0, job.Attempts, "attempts unchanged when not supplied")

	require.NoError(t, storage.SetStatus(ctx, id, models.JobStatusFailed, intPtr(3)))
	job, err = storage.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, 3, job.Attempts)

	assert.Error(t, storage.SetStatus(ctx, id, models.JobStatus("bogus"), nil))
}

func TestJobStorage_SetStatusMissingJobIsNoop(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	assert.NoError(t, storage.SetStatus(ctx, 4242, models.JobStatusComplete, nil))

	_, err := storage.GetJob(ctx, 4242)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestJobStorage_CountAndList(t *testing.T) {
	storage := newTestManager(t).JobStorage()
	ctx := context.Background()

	id1, _ := storage.Enqueue(ctx, models.NewJob("https://a", "a", "a"))
	id2, _ := storage.Enqueue(ctx, models.NewJob("https://b", "b", "b"))
	_, _ = storage.Enqueue(ctx, models.NewJob("https://c", "c", "c"))

	require.NoError(t, storage.SetStatus(ctx, id1, models.JobStatusComplete, nil))
	require.NoError(t, storage.SetStatus(ctx, id2, models.JobStatusFailed, intPtr(3)))

	stats, err := storage.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Complete)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 3, stats.Total)

	all, err := storage.ListJobs(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Greater(t, all[0].ID, all[1].ID, "newest first")

	failed, err := storage.ListJobs(ctx, models.JobStatusFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, id2, failed[0].ID)

	limited, err := storage.ListJobs(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	require.NoError(t, storage.DeleteAll(ctx))
	stats, err = storage.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}
