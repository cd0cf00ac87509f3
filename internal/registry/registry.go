// Package registry holds the compiled-in catalog of integrated services and
// decides which capabilities a user can reach.
package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/arrgate/internal/auth"
	"github.com/MrSnakeDoc/arrgate/internal/client"
	"github.com/MrSnakeDoc/arrgate/internal/domain"
)

// Handler runs one capability with JSON-encoded arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Capability is a named operation exposed by a service.
type Capability struct {
	Name        string
	Description string
	Category    string
	// RequiresApproval marks state-changing operations. The registry only
	// propagates it; the caller enforces the confirmation.
	RequiresApproval bool
	// Operation completes "Failed to ..." in error messages.
	Operation string
	// Bind returns the handler for one user.
	Bind func(c *client.Client, userID string) Handler
}

// ServiceDefinition is one integrated service. Definitions are built once at
// start-up and never change.
type ServiceDefinition struct {
	Name             string
	DisplayName      string
	Auth             auth.Strategy
	APIVersionPrefix string
	RequireAPIKey    bool
	StatusEndpoint   string
	Capabilities     []Capability
}

func (d ServiceDefinition) clientOptions() client.Options {
	return client.Options{
		ServiceName:      d.Name,
		DisplayName:      d.DisplayName,
		APIVersionPrefix: d.APIVersionPrefix,
		Auth:             d.Auth,
		RequireAPIKey:    d.RequireAPIKey,
		StatusEndpoint:   d.StatusEndpoint,
	}
}

// ConfigLister is the slice of domain.ConfigStore used by EnabledFor.
type ConfigLister interface {
	List(ctx context.Context, userID string) (map[string]*domain.ServiceConfiguration, error)
}

// ConfigGetter is the slice of domain.ConfigStore used by ToolFor.
type ConfigGetter interface {
	Get(ctx context.Context, userID, serviceName string) (*domain.ServiceConfiguration, error)
}

// capabilityRef locates a capability as (definition, capability) indexes.
type capabilityRef struct {
	def, capability int
}

// Registry binds the catalog to live clients.
type Registry struct {
	defs         []ServiceDefinition
	byName       map[string]int
	capabilities map[string]capabilityRef
	clients      map[string]*client.Client
}

// New builds one client per definition, all sharing deps.
func New(defs []ServiceDefinition, deps client.Deps) (*Registry, error) {
	r := &Registry{
		defs:         defs,
		byName:       make(map[string]int, len(defs)),
		capabilities: make(map[string]capabilityRef),
		clients:      make(map[string]*client.Client, len(defs)),
	}

	for i, def := range defs {
		if _, dup := r.byName[def.Name]; dup {
			return nil, fmt.Errorf("duplicate service definition %q", def.Name)
		}
		for j, capability := range def.Capabilities {
			if ref, dup := r.capabilities[capability.Name]; dup {
				return nil, fmt.Errorf("capability %q declared by both %s and %s", capability.Name, defs[ref.def].Name, def.Name)
			}
			r.capabilities[capability.Name] = capabilityRef{def: i, capability: j}
		}
		r.byName[def.Name] = i
		r.clients[def.Name] = client.New(def.clientOptions(), deps)
	}
	return r, nil
}

// Definitions returns the catalog in declaration order.
func (r *Registry) Definitions() []ServiceDefinition {
	return r.defs
}

// Definition looks up a service by name.
func (r *Registry) Definition(name string) (ServiceDefinition, bool) {
	i, ok := r.byName[name]
	if !ok {
		return ServiceDefinition{}, false
	}
	return r.defs[i], true
}

// Client returns the client of a service, or nil.
func (r *Registry) Client(name string) *client.Client {
	return r.clients[name]
}

// EnabledCapabilities is the set of tools a user can call. Names keeps
// catalog order.
type EnabledCapabilities struct {
	Tools map[string]*Tool
	Names []string
}

// GetEnabledCapabilities instantiates every capability of every service
// whose configuration is enabled. Approval-gated capabilities are included
// like the others, with their flag set.
func (r *Registry) GetEnabledCapabilities(userID string, configs map[string]*domain.ServiceConfiguration) EnabledCapabilities {
	out := EnabledCapabilities{Tools: make(map[string]*Tool)}

	for _, def := range r.defs {
		cfg := configs[def.Name]
		if cfg == nil || !cfg.IsEnabled {
			continue
		}
		c := r.clients[def.Name]
		for _, capability := range def.Capabilities {
			out.Tools[capability.Name] = newTool(def, capability, capability.Bind(c, userID))
			out.Names = append(out.Names, capability.Name)
		}
	}
	return out
}

// EnabledFor loads the user's configurations and gates the catalog on them.
func (r *Registry) EnabledFor(ctx context.Context, store ConfigLister, userID string) (EnabledCapabilities, error) {
	configs, err := store.List(ctx, userID)
	if err != nil {
		return EnabledCapabilities{}, fmt.Errorf("list configurations: %w", err)
	}
	return r.GetEnabledCapabilities(userID, configs), nil
}

// ToolFor resolves a single capability for userID, reading only the
// configuration of the service that owns it. ok is false when the
// capability is unknown or its service is not configured or disabled.
func (r *Registry) ToolFor(ctx context.Context, store ConfigGetter, userID, name string) (tool *Tool, ok bool, err error) {
	ref, known := r.capabilities[name]
	if !known {
		return nil, false, nil
	}
	def := r.defs[ref.def]

	cfg, err := store.Get(ctx, userID, def.Name)
	if err != nil {
		return nil, false, fmt.Errorf("get %s configuration: %w", def.Name, err)
	}
	if cfg == nil || !cfg.IsEnabled {
		return nil, false, nil
	}

	capability := def.Capabilities[ref.capability]
	return newTool(def, capability, capability.Bind(r.clients[def.Name], userID)), true, nil
}

// CheckServiceHealth probes a service with cfg. Unknown services and any
// failure report false.
func (r *Registry) CheckServiceHealth(ctx context.Context, serviceName string, cfg *domain.ServiceConfiguration) bool {
	c := r.clients[serviceName]
	if c == nil {
		return false
	}
	return c.Probe(ctx, cfg)
}
