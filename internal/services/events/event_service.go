package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
)

// Service is the in-process pipeline event bus. Handlers for one event type
// are called in subscription order.
type Service struct {
	mu          sync.RWMutex
	subscribers map[interfaces.EventType][]interfaces.EventHandler
	logger      arbor.ILogger
}

// NewService creates an event bus with no subscribers
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		subscribers: make(map[interfaces.EventType][]interfaces.EventHandler),
		logger:      logger,
	}
}

// Subscribe registers handler for eventType
func (s *Service) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	s.mu.Lock()
	s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	count := len(s.subscribers[eventType])
	s.mu.Unlock()

	s.logger.Debug().
		Str("event_type", string(eventType)).
		Int("subscriber_count", count).
		Msg("Event handler subscribed")
	return nil
}

// handlersFor returns a snapshot so handlers run without holding the lock
func (s *Service) handlersFor(eventType interfaces.EventType) []interfaces.EventHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handlers := s.subscribers[eventType]
	if len(handlers) == 0 {
		return nil
	}
	snapshot := make([]interfaces.EventHandler, len(handlers))
	copy(snapshot, handlers)
	return snapshot
}

// invoke runs one handler, turning a panic into an error
func (s *Service) invoke(ctx context.Context, handler interfaces.EventHandler, event interfaces.Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return handler(ctx, event)
}

func (s *Service) logFailure(err error, event interfaces.Event) {
	s.logger.Error().
		Err(err).
		Str("event_type", string(event.Type)).
		Msg("Event handler failed")
}

// Publish hands event to a background goroutine and returns immediately.
// Handlers get a context detached from the caller's cancellation, since the
// HTTP request or drain that published the event usually ends first.
func (s *Service) Publish(ctx context.Context, event interfaces.Event) error {
	handlers := s.handlersFor(event.Type)
	if len(handlers) == 0 {
		return nil
	}

	s.logger.Trace().
		Str("event_type", string(event.Type)).
		Int("subscriber_count", len(handlers)).
		Msg("Publishing event")

	handlerCtx := context.WithoutCancel(ctx)
	common.SafeGo(s.logger, "event:"+string(event.Type), func() {
		for _, handler := range handlers {
			if err := s.invoke(handlerCtx, handler, event); err != nil {
				s.logFailure(err, event)
			}
		}
	})
	return nil
}

// PublishSync calls every handler before returning. All handlers run even
// when an earlier one fails; the failures are joined.
func (s *Service) PublishSync(ctx context.Context, event interfaces.Event) error {
	var errs []error
	for _, handler := range s.handlersFor(event.Type) {
		if err := s.invoke(ctx, handler, event); err != nil {
			s.logFailure(err, event)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d event handler(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// Close drops every subscriber
func (s *Service) Close() error {
	s.mu.Lock()
	s.subscribers = make(map[interfaces.EventType][]interfaces.EventHandler)
	s.mu.Unlock()

	s.logger.Debug().Msg("Event service closed")
	return nil
}
