package queue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/metrics"
)

// DrainStats summarizes one drain
type DrainStats struct {
	Processed int
	Duration  time.Duration
	Err       error
}

// Worker drains the job queue through a JobProcessor, one drain at a time
type Worker struct {
	jobs      interfaces.JobStorage
	processor interfaces.JobProcessor
	events    interfaces.EventService
	metrics   *metrics.Metrics
	logger    arbor.ILogger

	draining atomic.Bool
}

// NewWorker creates a queue worker. events and metrics may be nil.
func NewWorker(
	jobs interfaces.JobStorage,
	processor interfaces.JobProcessor,
	events interfaces.EventService,
	m *metrics.Metrics,
	logger arbor.ILogger,
) *Worker {
	return &Worker{
		jobs:      jobs,
		processor: processor,
		events:    events,
		metrics:   m,
		logger:    logger,
	}
}

// IsDraining reports whether a drain is in progress
func (w *Worker) IsDraining() bool {
	return w.draining.Load()
}

// Tick starts a drain and blocks until it ends. When a drain is already in
// progress the tick is dropped and false is returned.
func (w *Worker) Tick(ctx context.Context) bool {
	if !w.draining.CompareAndSwap(false, true) {
		w.metrics.TickDropped()
		w.logger.Debug().Msg("Drain already in progress, tick dropped")
		return false
	}
	defer w.draining.Store(false)

	stats := w.drain(ctx)
	w.finish(ctx, stats)
	return true
}

// drain pulls pending jobs in ID order until none remain. The cursor keeps a
// job that was put back to pending during this drain for the next one.
// Cancelling ctx stops the drain between jobs; the job in hand still finishes.
func (w *Worker) drain(ctx context.Context) (stats DrainStats) {
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
	}()
	defer common.RecoverPanic(w.logger, "queue.drain")

	var cursor uint64
	for {
		if err := ctx.Err(); err != nil {
			stats.Err = err
			return stats
		}

		job, err := w.jobs.NextPendingAfter(ctx, cursor)
		if err != nil {
			stats.Err = err
			w.logger.Error().Err(err).Msg("Failed to fetch next pending job, ending drain")
			return stats
		}
		if job == nil {
			return stats
		}
		cursor = job.ID

		if err := w.processor.Process(ctx, job); err != nil {
			stats.Err = err
			w.logger.Error().
				Err(err).
				Int64("job_id", int64(job.ID)).
				Msg("Job processing failed, ending drain")
			return stats
		}
		stats.Processed++
	}
}

func (w *Worker) finish(ctx context.Context, stats DrainStats) {
	w.metrics.DrainFinished()

	queueStats, err := w.jobs.CountByStatus(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Failed to read queue stats")
	} else {
		w.metrics.SetQueueStats(queueStats)
	}

	if stats.Processed > 0 || stats.Err != nil {
		w.logger.Info().
			Int("processed", stats.Processed).
			Dur("duration", stats.Duration).
			Bool("errored", stats.Err != nil).
			Msg("Drain finished")
	}

	if w.events == nil || stats.Processed == 0 {
		return
	}
	payload := map[string]interface{}{
		"processed":   stats.Processed,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	if queueStats != nil {
		payload["queue"] = queueStats
	}
	if err := w.events.Publish(ctx, interfaces.Event{Type: interfaces.EventDrainFinished, Payload: payload}); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to publish drain event")
	}
}
