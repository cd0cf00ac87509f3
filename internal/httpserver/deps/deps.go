package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/metrics"
	"github.com/MrSnakeDoc/arrgate/internal/registry"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	AllowedHosts []string // Host headers allowed to access the server
	AllowedCIDRS []string // IPs allowed to access the API and infra endpoints
	TrustProxy   bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	RateLimitBurst  int // invocations allowed in a burst per client IP
	RateLimitPerMin int // sustained invocations per minute per client IP

	Store        domain.ConfigStore // Per-user service configurations
	StoreMode    string             // "redis" or "memory"
	StorePinger  Pinger             // nil when the store has no remote backend
	Registry     *registry.Registry // Compiled-in service catalog
	Metrics      *metrics.Metrics
	ProbeTimeout time.Duration // Deadline of one health probe

	ReloadTrigger chan struct{} // Channel to trigger homepage import (nil if import disabled)
}
