package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// JobStorage implements the durable page job queue for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

// Enqueue inserts job as pending with zero attempts. The assigned ID is
// written back into job and returned.
func (s *JobStorage) Enqueue(ctx context.Context, job *models.Job) (uint64, error) {
	if err := job.Validate(); err != nil {
		return 0, err
	}

	now := time.Now()
	job.Status = models.JobStatusPending
	job.Attempts = 0
	job.Rule = nil
	if job.ProcessingKind == "" {
		job.ProcessingKind = models.ProcessingGenericSummary
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	id, err := s.db.NextID("jobs")
	if err != nil {
		return 0, err
	}
	job.ID = id

	if err := s.db.Store().Insert(id, job); err != nil {
		return 0, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.logger.Trace().
		Int64("job_id", int64(job.ID)).
		Str("source_key", job.SourceKey).
		Msg("BadgerDB: Job enqueued")

	return job.ID, nil
}

// NextPending returns the oldest pending job, or nil when the queue is drained
func (s *JobStorage) NextPending(ctx context.Context) (*models.Job, error) {
	return s.NextPendingAfter(ctx, 0)
}

// NextPendingAfter returns the oldest pending job with an ID above afterID
func (s *JobStorage) NextPendingAfter(ctx context.Context, afterID uint64) (*models.Job, error) {
	query := badgerhold.Where("Status").Eq(models.JobStatusPending).Index("Status").
		And("ID").Gt(afterID).
		SortBy("ID").
		Limit(1)

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

// SetStatus updates status (and attempts when non-nil) in a single transaction.
// Updating a job that does not exist is a no-op.
func (s *JobStorage) SetStatus(ctx context.Context, id uint64, status models.JobStatus, attempts *int) error {
	if !status.Valid() {
		return fmt.Errorf("invalid job status: %s", status)
	}

	store := s.db.Store()
	missing := false

	err := store.Badger().Update(func(tx *badgerdb.Txn) error {
		var job models.Job
		if err := store.TxGet(tx, id, &job); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				missing = true
				return nil
			}
			return err
		}

		job.Status = status
		if attempts != nil {
			job.Attempts = *attempts
		}
		job.UpdatedAt = time.Now()

		return store.TxUpdate(tx, id, &job)
	})
	if err != nil {
		return fmt.Errorf("failed to set status for job %d: %w", id, err)
	}

	if missing {
		s.logger.Debug().Int64("job_id", int64(id)).Msg("SetStatus on missing job ignored")
	}

	return nil
}

// GetJob retrieves a job by ID
func (s *JobStorage) GetJob(ctx context.Context, id uint64) (*models.Job, error) {
	var job models.Job
	err := s.db.Store().Get(id, &job)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs returns jobs newest first, optionally filtered by status.
// An empty status returns all jobs; limit <= 0 returns everything.
func (s *JobStorage) ListJobs(ctx context.Context, status models.JobStatus, limit int) ([]*models.Job, error) {
	var query *badgerhold.Query
	if status != "" {
		query = badgerhold.Where("Status").Eq(status).Index("Status")
	}

	var jobs []models.Job
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ID > jobs[j].ID
	})

	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}

	result := make([]*models.Job, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

// CountByStatus returns job counts per status
func (s *JobStorage) CountByStatus(ctx context.Context) (*models.QueueStats, error) {
	stats := &models.QueueStats{}

	for _, status := range []models.JobStatus{
		models.JobStatusPending,
		models.JobStatusProcessing,
		models.JobStatusComplete,
		models.JobStatusFailed,
	} {
		count, err := s.db.Store().Count(&models.Job{}, badgerhold.Where("Status").Eq(status).Index("Status"))
		if err != nil {
			return nil, fmt.Errorf("failed to count %s jobs: %w", status, err)
		}

		switch status {
		case models.JobStatusPending:
			stats.Pending = int(count)
		case models.JobStatusProcessing:
			stats.Processing = int(count)
		case models.JobStatusComplete:
			stats.Complete = int(count)
		case models.JobStatusFailed:
			stats.Failed = int(count)
		}
		stats.Total += int(count)
	}

	return stats, nil
}

// DeleteAll removes every job from the queue
func (s *JobStorage) DeleteAll(ctx context.Context) error {
	if err := s.db.Store().DeleteMatching(&models.Job{}, nil); err != nil {
		return fmt.Errorf("failed to delete jobs: %w", err)
	}
	return nil
}
