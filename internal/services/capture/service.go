package capture

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"github.com/ternarybob/contextlog/internal/models"
	"github.com/ternarybob/contextlog/internal/services/transform"
)

var (
	// ErrSessionInactive is returned when a page arrives outside a session
	ErrSessionInactive = errors.New("no active session")

	// ErrEmptyContent is returned when a capture carries no usable text
	ErrEmptyContent = errors.New("page content is empty")
)

// Service accepts captured pages and enqueues them as jobs
type Service struct {
	jobs      interfaces.JobStorage
	kvStorage interfaces.KeyValueStorage
	transform *transform.Service
	events    interfaces.EventService
	logger    arbor.ILogger
}

// NewService creates a capture service. events may be nil.
func NewService(
	jobs interfaces.JobStorage,
	kvStorage interfaces.KeyValueStorage,
	transformer *transform.Service,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		jobs:      jobs,
		kvStorage: kvStorage,
		transform: transformer,
		events:    events,
		logger:    logger,
	}
}

// Capture enqueues page as a new pending job. Every call creates a job, even
// for a URL that is already queued.
func (s *Service) Capture(ctx context.Context, page models.PageCapture) (*models.Job, error) {
	active, err := s.SessionActive(ctx)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrSessionInactive
	}

	sourceKey := strings.TrimSpace(page.URL)
	if sourceKey == "" {
		return nil, fmt.Errorf("page url is required")
	}

	title := strings.TrimSpace(page.Title)
	content := strings.TrimSpace(page.Content)

	if content == "" && strings.TrimSpace(page.HTML) != "" {
		extracted, err := s.transform.ExtractPage(page.HTML, sourceKey)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page text: %w", err)
		}
		content = extracted.Text
		if title == "" {
			title = extracted.Title
		}
	}
	if content == "" {
		return nil, ErrEmptyContent
	}
	if title == "" {
		title = sourceKey
	}

	job := models.NewJob(sourceKey, title, content)
	if _, err := s.jobs.Enqueue(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("job_id", int64(job.ID)).
		Str("source_key", sourceKey).
		Int("content_length", len(content)).
		Msg("Page captured")

	s.publish(ctx, interfaces.EventJobEnqueued, map[string]interface{}{
		"job_id":     job.ID,
		"source_key": job.SourceKey,
		"status":     string(job.Status),
	})

	return job, nil
}

// SessionActive reports whether captures are currently accepted
func (s *Service) SessionActive(ctx context.Context) (bool, error) {
	value, err := s.kvStorage.Get(ctx, models.SettingSessionActive)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read session state: %w", err)
	}
	active, _ := strconv.ParseBool(value)
	return active, nil
}

// SetSession starts or stops the capture session
func (s *Service) SetSession(ctx context.Context, active bool) error {
	if err := s.kvStorage.Set(ctx, models.SettingSessionActive, strconv.FormatBool(active), "Whether page captures are accepted"); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}

	s.logger.Info().Bool("active", active).Msg("Session state changed")
	s.publish(ctx, interfaces.EventSessionChange, map[string]interface{}{
		"active": active,
	})
	return nil
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}
