// -----------------------------------------------------------------------
// Page Job - unit of work in the durable processing queue
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a queued page job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether a job in this status will never be mutated again.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusComplete, JobStatusFailed:
		return true
	}
	return false
}

// ProcessingKind selects which summarization path a job takes.
type ProcessingKind string

const (
	ProcessingGenericSummary   ProcessingKind = "generic_summary"
	ProcessingCustomExtraction ProcessingKind = "custom_extraction"
)

// Job is a captured page waiting to be summarized.
//
// ID is assigned by the store from a monotonically increasing sequence, so
// insertion order is processing order. Rule is only populated in memory for
// the duration of one attempt and is never written back to the queue.
type Job struct {
	ID             uint64          `json:"id" badgerhold:"key"`
	SourceKey      string          `json:"source_key"`
	Title          string          `json:"title"`
	Content        string          `json:"content"`
	Status         JobStatus       `json:"status" badgerhold:"index"`
	Attempts       int             `json:"attempts"`
	ProcessingKind ProcessingKind  `json:"processing_kind"`
	Rule           *ExtractionRule `json:"rule,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewJob creates a pending job for a captured page.
func NewJob(sourceKey, title, content string) *Job {
	now := time.Now()
	return &Job{
		SourceKey:      sourceKey,
		Title:          title,
		Content:        content,
		Status:         JobStatusPending,
		ProcessingKind: ProcessingGenericSummary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks the fields a producer must supply. Only the source key is
// required; the queue accepts whatever content the producer extracted.
func (j *Job) Validate() error {
	if j.SourceKey == "" {
		return fmt.Errorf("job source key is required")
	}
	return nil
}

// QueueStats is a snapshot of job counts per status.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Complete   int `json:"complete"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}
