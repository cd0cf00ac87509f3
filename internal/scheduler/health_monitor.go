package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
)

// ConfigSource enumerates stored configurations
type ConfigSource interface {
	Users(ctx context.Context) ([]string, error)
	List(ctx context.Context, userID string) (map[string]*domain.ServiceConfiguration, error)
}

// HealthChecker probes one service
type HealthChecker interface {
	CheckServiceHealth(ctx context.Context, serviceName string, cfg *domain.ServiceConfiguration) bool
}

// HealthRecorder receives probe results
type HealthRecorder interface {
	SetServiceUp(userID, serviceName string, up bool)
}

// HealthMonitor periodically probes every enabled configuration and
// publishes the results
type HealthMonitor struct {
	source   ConfigSource
	checker  HealthChecker
	recorder HealthRecorder
	logger   logger.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
}

// NewHealthMonitor creates a new health monitor. timeout bounds each probe.
func NewHealthMonitor(
	source ConfigSource,
	checker HealthChecker,
	recorder HealthRecorder,
	log logger.Logger,
	interval time.Duration,
	timeout time.Duration,
) *HealthMonitor {
	return &HealthMonitor{
		source:   source,
		checker:  checker,
		recorder: recorder,
		logger:   log,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start probes immediately, then on every tick
func (hm *HealthMonitor) Start(ctx context.Context) error {
	hm.Check(ctx)

	ticker := time.NewTicker(hm.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				hm.Check(ctx)
			case <-hm.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the monitor
func (hm *HealthMonitor) Stop() {
	close(hm.stopCh)
}

// Check probes every enabled configuration of every user once and returns
// the number of services found down.
func (hm *HealthMonitor) Check(ctx context.Context) int {
	users, err := hm.source.Users(ctx)
	if err != nil {
		hm.logger.Warn("health check skipped, cannot list users", logger.Error(err))
		return 0
	}

	down := 0
	for _, userID := range users {
		configs, err := hm.source.List(ctx, userID)
		if err != nil {
			hm.logger.Warn("health check skipped for user",
				logger.User(userID),
				logger.Error(err))
			continue
		}

		names := make([]string, 0, len(configs))
		for name := range configs {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			cfg := configs[name]
			if !cfg.IsEnabled {
				continue
			}
			up := hm.probe(ctx, name, cfg)
			hm.recorder.SetServiceUp(userID, name, up)
			if !up {
				down++
				hm.logger.Warn("service unreachable",
					logger.User(userID),
					logger.Service(name))
			}
		}
	}

	hm.logger.Debug("health check completed",
		logger.Int("users", len(users)),
		logger.Int("down", down))
	return down
}

func (hm *HealthMonitor) probe(ctx context.Context, name string, cfg *domain.ServiceConfiguration) bool {
	if hm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hm.timeout)
		defer cancel()
	}
	return hm.checker.CheckServiceHealth(ctx, name, cfg)
}
