package interfaces

import (
	"context"
	"time"
)

// Ticker runs one drain per call. It returns false when the tick was dropped.
type Ticker interface {
	Tick(ctx context.Context) bool
}

// SchedulerStatus is a snapshot of the worker timer
type SchedulerStatus struct {
	Running    bool       `json:"running"`
	Interval   string     `json:"interval"`
	LastTick   *time.Time `json:"last_tick,omitempty"`
	NextTick   *time.Time `json:"next_tick,omitempty"`
	Dropped    int64      `json:"dropped_ticks"`
	TotalTicks int64      `json:"total_ticks"`
}

// SchedulerService drives the queue worker on a fixed interval
type SchedulerService interface {
	// Start schedules a tick every interval
	Start(interval time.Duration) error

	// Stop halts the timer and waits for a running tick to return
	Stop() error

	// TriggerNow fires a tick in the background
	TriggerNow()

	IsRunning() bool
	Status() *SchedulerStatus
}
