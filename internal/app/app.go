package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/arrgate/internal/client"
	"github.com/MrSnakeDoc/arrgate/internal/config"
	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/httpserver"
	"github.com/MrSnakeDoc/arrgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/metrics"
	"github.com/MrSnakeDoc/arrgate/internal/redis"
	"github.com/MrSnakeDoc/arrgate/internal/registry"
	"github.com/MrSnakeDoc/arrgate/internal/retry"
	"github.com/MrSnakeDoc/arrgate/internal/scheduler"
	"github.com/MrSnakeDoc/arrgate/internal/session"
	"github.com/MrSnakeDoc/arrgate/internal/store"
	"github.com/MrSnakeDoc/arrgate/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/arrgate/internal/store/redis"
	"github.com/MrSnakeDoc/arrgate/internal/vault"
	"github.com/MrSnakeDoc/arrgate/internal/version"
)

// configStore is what the app needs from either store backend.
type configStore interface {
	domain.ConfigStore
	scheduler.ConfigSource
}

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	reloader    *scheduler.HomepageReloader
	gc          *scheduler.GarbageCollector
	health      *scheduler.HealthMonitor
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	loggerClient.Debugf("config: %+v", cfg.Redacted())

	v, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		loggerClient.Errorf("Failed to initialize credential vault: %v", err)
		os.Exit(1)
	}
	sealer := store.NewSealer(v, loggerClient)

	// Redis is optional; without it configurations live in memory
	var (
		redisClient *goredis.Client
		st          configStore
		pinger      deps.Pinger
	)
	storeMode := "memory"
	if cfg.RedisAddr != "" {
		loggerClient.Info("Connecting to Redis",
			logger.String("addr", cfg.RedisAddr),
			logger.String("user", cfg.RedisUser),
			logger.Secret("password", cfg.RedisPassword))
		redisClient, err = redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Redis initialized successfully")

		redisStore := redisstore.NewStore(redisClient, sealer)
		st, pinger, storeMode = redisStore, redisStore, "redis"
	} else {
		loggerClient.Warn("ARRGATE_REDIS_ADDR not set, configurations are kept in memory only")
		st = memory.NewStore(sealer)
	}

	m := metrics.New()
	sessions := session.NewCache(cfg.SessionTTL, session.WithLoginTimeout(cfg.RequestTimeout))

	reg, err := registry.New(registry.DefaultCatalog(), client.Deps{
		Store:    st,
		HTTP:     &http.Client{Timeout: cfg.RequestTimeout},
		Sessions: sessions,
		Retry: retry.Policy{
			MaxRetries: cfg.RetryMax,
			BaseDelay:  cfg.RetryBaseDelay,
			MaxDelay:   cfg.RetryMaxDelay,
		},
		Logger:  loggerClient,
		Metrics: m,
	})
	if err != nil {
		loggerClient.Errorf("Invalid service catalog: %v", err)
		os.Exit(1)
	}

	// Initialize homepage import (if services.yaml is configured)
	var reloader *scheduler.HomepageReloader
	var reloadTrigger chan struct{}
	if cfg.HomepageFile != "" {
		loggerClient.Info("homepage file configured, initializing importer",
			logger.String("file", cfg.HomepageFile),
			logger.User(cfg.HomepageUser))
		reloadTrigger = make(chan struct{}, 1)
		reloader = scheduler.NewHomepageReloader(
			cfg.HomepageFile,
			cfg.HomepageUser,
			st,
			loggerClient,
			cfg.ImportInterval,
			reloadTrigger,
		)
	} else {
		loggerClient.Info("homepage file not configured, import disabled")
	}

	gc := scheduler.NewGarbageCollector(sessions, loggerClient, cfg.SessionSweepInterval)

	var health *scheduler.HealthMonitor
	if cfg.HealthInterval > 0 {
		health = scheduler.NewHealthMonitor(st, reg, m, loggerClient, cfg.HealthInterval, cfg.RequestTimeout)
	}

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Store:           st,
		StoreMode:       storeMode,
		StorePinger:     pinger,
		Registry:        reg,
		Metrics:         m,
		ProbeTimeout:    cfg.RequestTimeout,
		ReloadTrigger:   reloadTrigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		reloader:    reloader,
		gc:          gc,
		health:      health,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting arrgate v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("arrgate %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start homepage import (if enabled)
	if a.reloader != nil {
		if err := a.reloader.Start(ctx); err != nil {
			return fmt.Errorf("failed to start homepage reloader: %w", err)
		}
		a.logger.Info("homepage reloader started",
			logger.Duration("interval", a.cfg.ImportInterval))
	}

	// Start session garbage collector
	if err := a.gc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start garbage collector: %w", err)
	}
	a.logger.Info("garbage collector started",
		logger.Duration("interval", a.cfg.SessionSweepInterval))

	// Start health monitor (if enabled)
	if a.health != nil {
		go func() {
			if err := a.health.Start(ctx); err != nil {
				a.logger.Warn("health monitor stopped", logger.Error(err))
			}
		}()
		a.logger.Info("health monitor started",
			logger.Duration("interval", a.cfg.HealthInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.reloader != nil {
		a.reloader.Stop()
	}
	a.gc.Stop()
	if a.health != nil {
		a.health.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ arrgate stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
