package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
)

// Service implements SchedulerService over a cron timer
type Service struct {
	ticker interfaces.Ticker
	logger arbor.ILogger

	mu       sync.Mutex
	cron     *cron.Cron
	entryID  cron.EntryID
	interval time.Duration
	running  bool
	stopped  bool
	ctx      context.Context
	cancel   context.CancelFunc
	lastTick *time.Time

	// manual tracks TriggerNow ticks so Stop can wait for them
	manual sync.WaitGroup

	total   atomic.Int64
	dropped atomic.Int64
}

// NewService creates a scheduler that drives ticker
func NewService(ticker interfaces.Ticker, logger arbor.ILogger) *Service {
	return &Service{
		ticker: ticker,
		logger: logger,
	}
}

// Start schedules a tick every interval
func (s *Service) Start(interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if interval <= 0 {
		return fmt.Errorf("invalid scheduler interval: %s", interval)
	}

	c := cron.New()
	entryID, err := c.AddFunc(fmt.Sprintf("@every %s", interval), s.runTick)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = c
	s.entryID = entryID
	s.interval = interval
	s.running = true
	s.stopped = false
	c.Start()

	s.logger.Info().
		Str("interval", interval.String()).
		Msg("Scheduler started")
	return nil
}

// Stop halts the timer and waits for every running tick, timed or manual,
// to return. Manual triggers after Stop are ignored until the next Start.
func (s *Service) Stop() error {
	s.mu.Lock()
	s.stopped = true
	wasRunning := s.running
	c := s.cron
	cancel := s.cancel
	s.running = false
	s.mu.Unlock()

	if wasRunning {
		cancel()
		<-c.Stop().Done()
	}
	s.manual.Wait()

	if wasRunning {
		s.logger.Info().Msg("Scheduler stopped")
	}
	return nil
}

// TriggerNow fires a tick in the background
func (s *Service) TriggerNow() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.logger.Warn().Msg("Manual drain ignored, scheduler is stopped")
		return
	}
	s.manual.Add(1)
	s.mu.Unlock()

	s.logger.Info().Msg("Manual drain requested")
	go func() {
		defer s.manual.Done()
		s.runTick()
	}()
}

// IsRunning returns true if the timer is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns a snapshot of the timer
func (s *Service) Status() *interfaces.SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := &interfaces.SchedulerStatus{
		Running:    s.running,
		TotalTicks: s.total.Load(),
		Dropped:    s.dropped.Load(),
	}
	if s.interval > 0 {
		status.Interval = s.interval.String()
	}
	if s.lastTick != nil {
		last := *s.lastTick
		status.LastTick = &last
	}
	if s.running && s.cron != nil {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			status.NextTick = &next
		}
	}
	return status
}

func (s *Service) runTick() {
	defer common.RecoverPanic(s.logger, "scheduler.tick")

	s.mu.Lock()
	ctx := s.ctx
	now := time.Now()
	s.lastTick = &now
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	s.total.Add(1)
	if !s.ticker.Tick(ctx) {
		s.dropped.Add(1)
	}
}
