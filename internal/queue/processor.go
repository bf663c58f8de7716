package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/metrics"
	"github.com/ternarybob/contextlog/internal/models"
)

// DefaultMaxAttempts is the attempt budget when none is configured
const DefaultMaxAttempts = 3

// Processor triages a job, invokes the AI service and records the outcome
type Processor struct {
	jobs        interfaces.JobStorage
	results     interfaces.ResultStorage
	cache       interfaces.ResultCache
	rules       interfaces.RuleMatcher
	summarizer  interfaces.Summarizer
	events      interfaces.EventService
	metrics     *metrics.Metrics
	maxAttempts int
	logger      arbor.ILogger
	now         func() time.Time
}

// NewProcessor creates a job processor. events and metrics may be nil.
func NewProcessor(
	jobs interfaces.JobStorage,
	results interfaces.ResultStorage,
	cache interfaces.ResultCache,
	rules interfaces.RuleMatcher,
	summarizer interfaces.Summarizer,
	events interfaces.EventService,
	m *metrics.Metrics,
	maxAttempts int,
	logger arbor.ILogger,
) *Processor {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Processor{
		jobs:        jobs,
		results:     results,
		cache:       cache,
		rules:       rules,
		summarizer:  summarizer,
		events:      events,
		metrics:     m,
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// Process runs one attempt of job. Every failure is absorbed into the retry
// policy; the returned error is non-nil only when the job's status could not
// be written at all. A started attempt runs to an outcome even if ctx is
// cancelled, so shutdown never charges a job for an interrupted AI call.
func (p *Processor) Process(ctx context.Context, job *models.Job) error {
	ctx = context.WithoutCancel(ctx)
	if err := p.runRecovered(ctx, job); err != nil {
		return p.fail(ctx, job, err)
	}
	return nil
}

// runRecovered turns a panic in run into an ordinary attempt failure
func (p *Processor) runRecovered(ctx context.Context, job *models.Job) (err error) {
	defer recoverInto(&err)
	return p.run(ctx, job)
}

func (p *Processor) run(ctx context.Context, job *models.Job) error {
	if err := p.jobs.SetStatus(ctx, job.ID, models.JobStatusProcessing, nil); err != nil {
		return err
	}
	job.Status = models.JobStatusProcessing

	cached, err := p.cache.Lookup(ctx, job.SourceKey)
	if err != nil {
		return err
	}
	if cached != nil {
		if err := p.results.Append(ctx, cached); err != nil {
			return err
		}
		if err := p.complete(ctx, job); err != nil {
			return err
		}
		p.metrics.JobOutcome(metrics.OutcomeCached)
		p.publishResult(ctx, job, cached, true)
		return nil
	}

	// Triage runs on every attempt; the matched rule is never persisted
	rule, err := p.rules.Match(ctx, job.SourceKey)
	if err != nil {
		return err
	}
	if rule != nil {
		job.ProcessingKind = models.ProcessingCustomExtraction
		job.Rule = rule
	} else {
		job.ProcessingKind = models.ProcessingGenericSummary
		job.Rule = nil
	}

	summary, customData, err := p.invoke(ctx, job)
	if err != nil {
		return err
	}

	now := p.now()
	result := &models.Result{
		ID:         common.NewResultID(now),
		SourceKey:  job.SourceKey,
		Title:      job.Title,
		Summary:    summary,
		CustomData: customData,
		Timestamp:  now,
	}

	if err := p.results.Append(ctx, result); err != nil {
		return err
	}
	if err := p.cache.Remember(ctx, result); err != nil {
		return err
	}
	if err := p.complete(ctx, job); err != nil {
		return err
	}

	p.metrics.JobOutcome(metrics.OutcomeComplete)
	p.publishResult(ctx, job, result, false)
	return nil
}

// invoke calls the AI service once for a generic summary, or twice
// concurrently for summary plus extraction. Both calls must succeed.
func (p *Processor) invoke(ctx context.Context, job *models.Job) (string, json.RawMessage, error) {
	if job.ProcessingKind != models.ProcessingCustomExtraction || job.Rule == nil {
		summary, err := p.summarize(ctx, job)
		return summary, nil, err
	}

	p.logger.Debug().
		Int64("job_id", int64(job.ID)).
		Str("rule_id", job.Rule.ID).
		Msg("Running summary and extraction")

	var (
		wg         sync.WaitGroup
		summary    string
		customData []byte
		summaryErr error
		extractErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer recoverInto(&summaryErr)
		summary, summaryErr = p.summarize(ctx, job)
	}()
	go func() {
		defer wg.Done()
		defer recoverInto(&extractErr)
		start := time.Now()
		customData, extractErr = p.summarizer.ExtractFields(ctx, job.Content, job.Rule.Fields)
		p.metrics.AICall("extraction", time.Since(start), extractErr)
	}()
	wg.Wait()

	if err := errors.Join(summaryErr, extractErr); err != nil {
		return "", nil, err
	}
	return summary, json.RawMessage(customData), nil
}

func (p *Processor) summarize(ctx context.Context, job *models.Job) (string, error) {
	start := time.Now()
	summary, err := p.summarizer.Summarize(ctx, job.Content)
	p.metrics.AICall("summary", time.Since(start), err)
	return summary, err
}

func (p *Processor) complete(ctx context.Context, job *models.Job) error {
	if err := p.jobs.SetStatus(ctx, job.ID, models.JobStatusComplete, nil); err != nil {
		return err
	}
	job.Status = models.JobStatusComplete

	p.logger.Info().
		Int64("job_id", int64(job.ID)).
		Str("source_key", job.SourceKey).
		Str("kind", string(job.ProcessingKind)).
		Msg("Job complete")
	return nil
}

// fail records a failed attempt: back to pending while attempts remain,
// otherwise parked as failed.
func (p *Processor) fail(ctx context.Context, job *models.Job, cause error) error {
	attempts := job.Attempts + 1
	status := models.JobStatusPending
	if attempts >= p.maxAttempts {
		status = models.JobStatusFailed
	}

	if err := p.jobs.SetStatus(ctx, job.ID, status, &attempts); err != nil {
		p.logger.Error().
			Err(err).
			Int64("job_id", int64(job.ID)).
			Msg("Failed to record job failure")
		return fmt.Errorf("failed to record failure for job %d: %w", job.ID, err)
	}
	job.Status = status
	job.Attempts = attempts

	eventType := interfaces.EventJobRetry
	outcome := metrics.OutcomeRetry
	if status == models.JobStatusFailed {
		eventType = interfaces.EventJobFailed
		outcome = metrics.OutcomeFailed
	}

	p.logger.Warn().
		Err(cause).
		Int64("job_id", int64(job.ID)).
		Str("source_key", job.SourceKey).
		Int("attempts", attempts).
		Str("status", string(status)).
		Msg("Job attempt failed")

	p.metrics.JobOutcome(outcome)
	p.publish(ctx, eventType, map[string]interface{}{
		"job_id":     job.ID,
		"source_key": job.SourceKey,
		"status":     string(status),
		"attempts":   attempts,
		"error":      cause.Error(),
	})
	return nil
}

func (p *Processor) publishResult(ctx context.Context, job *models.Job, result *models.Result, cached bool) {
	p.publish(ctx, interfaces.EventResultSaved, map[string]interface{}{
		"job_id":     job.ID,
		"source_key": job.SourceKey,
		"status":     string(models.JobStatusComplete),
		"cached":     cached,
		"result":     result,
	})
}

func (p *Processor) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if p.events == nil {
		return
	}
	if err := p.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		p.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("panic: %v", r)
	}
}
