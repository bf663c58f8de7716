// -----------------------------------------------------------------------
// Storage interfaces for the page processing pipeline
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/contextlog/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// JobStorage - durable FIFO queue of page jobs
type JobStorage interface {
	// Enqueue inserts a new pending job (attempts=0) and returns its assigned ID
	Enqueue(ctx context.Context, job *models.Job) (uint64, error)

	// NextPending returns the pending job with the lowest ID, or nil if none
	NextPending(ctx context.Context) (*models.Job, error)

	// NextPendingAfter returns the pending job with the lowest ID greater than afterID, or nil
	NextPendingAfter(ctx context.Context, afterID uint64) (*models.Job, error)

	// SetStatus updates status and, when attempts is non-nil, the attempt count.
	// A missing job is a no-op.
	SetStatus(ctx context.Context, id uint64, status models.JobStatus, attempts *int) error

	GetJob(ctx context.Context, id uint64) (*models.Job, error)
	ListJobs(ctx context.Context, status models.JobStatus, limit int) ([]*models.Job, error)
	CountByStatus(ctx context.Context) (*models.QueueStats, error)
	DeleteAll(ctx context.Context) error
}

// CacheStorage - result memoization keyed by source key
type CacheStorage interface {
	// Get returns the entry for sourceKey, or nil on a miss
	Get(ctx context.Context, sourceKey string) (*models.CacheEntry, error)

	// Put upserts the entry; last write wins
	Put(ctx context.Context, entry *models.CacheEntry) error

	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// ResultStorage - durable result log, newest first
type ResultStorage interface {
	Append(ctx context.Context, result *models.Result) error

	// List returns up to limit results, most recent first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]*models.Result, error)

	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// RuleStorage - ordered extraction rule set
type RuleStorage interface {
	// List returns all rules in stored order
	List(ctx context.Context) ([]*models.ExtractionRule, error)
	Get(ctx context.Context, id string) (*models.ExtractionRule, error)

	// Save creates a rule at the end of the order, or updates an existing rule in place
	Save(ctx context.Context, rule *models.ExtractionRule) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

// StorageManager - bundles all storage collections over one database
type StorageManager interface {
	JobStorage() JobStorage
	CacheStorage() CacheStorage
	ResultStorage() ResultStorage
	RuleStorage() RuleStorage
	KeyValueStorage() KeyValueStorage

	// ClearUserData removes results, rules and settings. The job queue and
	// cache are left untouched.
	ClearUserData(ctx context.Context) error

	// LoadRulesFromFiles seeds extraction rules from TOML/YAML files
	LoadRulesFromFiles(ctx context.Context, dirPath string) (int, error)

	Close() error
}
