package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/vault"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	EncryptionKey string // vault master secret, at least vault.MinSecretLength chars

	// Upstream calls
	RequestTimeout time.Duration // deadline of one physical attempt (default: 30s)
	RetryMax       int           // retries after the first attempt (default: 3)
	RetryBaseDelay time.Duration // first backoff step (default: 1s)
	RetryMaxDelay  time.Duration // backoff cap (default: 30s)

	// Sessions
	SessionTTL           time.Duration // lifetime of a cached login (default: 55m)
	SessionSweepInterval time.Duration // expired-session eviction (default: 10m)

	// Homepage import
	HomepageFile   string        // path to homepage services.yaml (optional, empty = import disabled)
	HomepageUser   string        // user the imported configurations belong to
	ImportInterval time.Duration // interval to re-import services.yaml (default: 24h)

	HealthInterval time.Duration // background health probes (default: 5m, 0 = disabled)

	// Redis
	RedisAddr             string        // ex: "localhost:6379", empty => in-memory store
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	RateLimitBurst  int // invocations allowed in a burst per client IP
	RateLimitPerMin int // sustained invocations per minute per client IP
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	const mask = "***REDACTED***"
	if c.EncryptionKey != "" {
		c.EncryptionKey = mask
	}
	if c.RedisPassword != "" {
		c.RedisPassword = mask
	}
	return c
}

// Load reads the environment. Invalid or missing required values panic with
// a FATAL message since the process cannot run without them.
func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("ARRGATE_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("ARRGATE_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("ARRGATE_LOG_LEVEL", "info"),
		PrettyLog: mustBool("ARRGATE_PRETTY_LOG", true),

		// Credential vault
		EncryptionKey: requireSecret("ARRGATE_ENCRYPTION_KEY"),

		// Upstream calls
		RequestTimeout: mustDuration("ARRGATE_REQUEST_TIMEOUT", 30*time.Second),
		RetryMax:       getenvInt("ARRGATE_RETRY_MAX", 3),
		RetryBaseDelay: mustDuration("ARRGATE_RETRY_BASE_DELAY", time.Second),
		RetryMaxDelay:  mustDuration("ARRGATE_RETRY_MAX_DELAY", 30*time.Second),

		// Sessions
		SessionTTL:           mustDuration("ARRGATE_SESSION_TTL", 55*time.Minute),
		SessionSweepInterval: mustDuration("ARRGATE_SESSION_SWEEP_INTERVAL", 10*time.Minute),

		// Homepage import
		HomepageFile:   getenv("ARRGATE_HOMEPAGE_FILE", ""), // Optional, empty = import disabled
		HomepageUser:   getenv("ARRGATE_HOMEPAGE_USER", "default"),
		ImportInterval: mustDuration("ARRGATE_IMPORT_INTERVAL", 24*time.Hour),

		HealthInterval: mustDuration("ARRGATE_HEALTH_INTERVAL", 5*time.Minute),

		// Redis settings
		RedisAddr:             getenv("ARRGATE_REDIS_ADDR", ""),
		RedisUser:             getenv("ARRGATE_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("ARRGATE_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("ARRGATE_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("ARRGATE_REDIS_DB", 0),
		RedisDT:               mustDuration("ARRGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("ARRGATE_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("ARRGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("ARRGATE_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("ARRGATE_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("ARRGATE_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("ARRGATE_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("ARRGATE_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("ARRGATE_REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("ARRGATE_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("ARRGATE_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("ARRGATE_TRUST_PROXY", true),

		RateLimitBurst:  getenvInt("ARRGATE_RATE_LIMIT_BURST", 30),
		RateLimitPerMin: getenvInt("ARRGATE_RATE_LIMIT_PER_MIN", 60),
	}

	// Validate Redis password configuration
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: ARRGATE_REDIS_PASSWORD is required when ARRGATE_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.RetryMax < 0 {
		panic(fmt.Sprintf("❌ FATAL: ARRGATE_RETRY_MAX must be >= 0, got %d", cfg.RetryMax))
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

// requireSecret reads the vault master secret. A missing or short secret
// is fatal; running without encryption is never an option.
func requireSecret(key string) string {
	v := requireEnv(key)
	if err := vault.ValidateSecret(v); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %s is invalid: %v", key, err))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
