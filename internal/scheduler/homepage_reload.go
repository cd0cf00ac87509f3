package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/sources/homepage"
)

// HomepageReloader periodically imports service widgets from Homepage's
// services.yaml into one user's configurations
type HomepageReloader struct {
	loader        *homepage.Loader
	mapper        *homepage.Mapper
	store         domain.ConfigStore
	userID        string
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}

	mu sync.Mutex
	// imported maps the services seen in the last import to a fingerprint
	// of their connection settings; disabled holds the ones this reloader
	// switched off because they left the file.
	imported map[string]string
	disabled map[string]bool
}

// NewHomepageReloader creates a new homepage reloader
func NewHomepageReloader(
	serviceFile string,
	userID string,
	store domain.ConfigStore,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *HomepageReloader {
	return &HomepageReloader{
		loader:        homepage.NewLoader(serviceFile),
		mapper:        homepage.NewMapper(),
		store:         store,
		userID:        userID,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		imported:      make(map[string]string),
		disabled:      make(map[string]bool),
	}
}

// Start begins the periodic reload process
func (hr *HomepageReloader) Start(ctx context.Context) error {
	// Load immediately on start
	if err := hr.Reload(ctx); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	// Start periodic reload
	ticker := time.NewTicker(hr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := hr.Reload(ctx); err != nil {
					hr.logger.Error("failed to import homepage services",
						logger.Error(err))
				}
			case <-hr.manualTrigger:
				hr.logger.Info("manual reload triggered")
				if err := hr.Reload(ctx); err != nil {
					hr.logger.Error("failed to import homepage services",
						logger.Error(err))
				}
			case <-hr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (hr *HomepageReloader) Stop() {
	close(hr.stopCh)
}

// Reload imports services.yaml. Services already configured keep their
// enabled flag; services that disappeared since the last import are
// disabled, and re-enabled if they come back. A service whose entry did not
// change since the previous import keeps any connection settings edited
// through the API; a changed entry overwrites them.
func (hr *HomepageReloader) Reload(ctx context.Context) error {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	hr.logger.Info("importing services from homepage")

	config, err := hr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load services: %w", err)
	}

	configs, err := hr.mapper.MapServices(config, hr.userID)
	if err != nil {
		return fmt.Errorf("failed to map services: %w", err)
	}

	seen := make(map[string]string, len(configs))
	for _, cfg := range configs {
		fp := fingerprint(cfg)
		seen[cfg.ServiceName] = fp

		existing, err := hr.store.Get(ctx, cfg.UserID, cfg.ServiceName)
		if err != nil {
			return fmt.Errorf("failed to read %s configuration: %w", cfg.ServiceName, err)
		}

		if existing != nil && hr.imported[cfg.ServiceName] == fp && fingerprint(*existing) != fp {
			if err := hr.keepEdited(ctx, *existing); err != nil {
				return fmt.Errorf("failed to save %s configuration: %w", cfg.ServiceName, err)
			}
			continue
		}

		if existing != nil && !hr.disabled[cfg.ServiceName] {
			cfg.IsEnabled = existing.IsEnabled
		}

		if _, err := hr.store.Upsert(ctx, cfg); err != nil {
			return fmt.Errorf("failed to save %s configuration: %w", cfg.ServiceName, err)
		}
		delete(hr.disabled, cfg.ServiceName)
	}

	removed := 0
	for name := range hr.imported {
		if _, ok := seen[name]; ok {
			continue
		}
		ok, err := hr.disable(ctx, name)
		if err != nil {
			hr.logger.Warn("failed to disable removed service",
				logger.Service(name),
				logger.Error(err))
			continue
		}
		if ok {
			removed++
		}
	}

	if removed > 0 {
		hr.logger.Info("disabled services removed from homepage",
			logger.Int("count", removed))
	}

	hr.imported = seen
	hr.logger.Info("imported services from homepage",
		logger.User(hr.userID),
		logger.Int("count", len(configs)))

	return nil
}

// keepEdited leaves an API-edited record alone, only undoing a disable this
// reloader applied earlier.
func (hr *HomepageReloader) keepEdited(ctx context.Context, existing domain.ServiceConfiguration) error {
	hr.logger.Debug("keeping connection settings edited since last import",
		logger.Service(existing.ServiceName))

	if hr.disabled[existing.ServiceName] && !existing.IsEnabled {
		existing.IsEnabled = true
		if _, err := hr.store.Upsert(ctx, existing); err != nil {
			return err
		}
	}
	delete(hr.disabled, existing.ServiceName)
	return nil
}

func fingerprint(cfg domain.ServiceConfiguration) string {
	h := sha256.New()
	for _, part := range []string{cfg.TrimmedBaseURL(), cfg.APIKey, cfg.Username, cfg.Password} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (hr *HomepageReloader) disable(ctx context.Context, serviceName string) (bool, error) {
	existing, err := hr.store.Get(ctx, hr.userID, serviceName)
	if err != nil || existing == nil || !existing.IsEnabled {
		return false, err
	}

	existing.IsEnabled = false
	if _, err := hr.store.Upsert(ctx, *existing); err != nil {
		return false, err
	}
	hr.disabled[serviceName] = true
	return true, nil
}
