package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/logger"
)

const (
	// DefaultGCInterval is how often expired sessions are evicted
	DefaultGCInterval = 10 * time.Minute
)

// SessionSweeper is the part of the session cache the collector needs
type SessionSweeper interface {
	Sweep() int
	Len() int
}

// GarbageCollector evicts expired login sessions. Lookups already ignore
// them; this only bounds memory for services nobody calls anymore.
type GarbageCollector struct {
	sessions SessionSweeper
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	sessions SessionSweeper,
	log logger.Logger,
	interval time.Duration,
) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		sessions: sessions,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gc.Collect()
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect removes expired sessions and returns how many were dropped
func (gc *GarbageCollector) Collect() int {
	deleted := gc.sessions.Sweep()

	if deleted > 0 {
		gc.logger.Info("garbage collected expired sessions",
			logger.Int("sessions_deleted", deleted),
			logger.Int("sessions_live", gc.sessions.Len()))
	} else {
		gc.logger.Debug("no sessions to garbage collect")
	}

	return deleted
}
