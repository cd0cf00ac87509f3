package domain

import "context"

// ConfigStore persists ServiceConfigurations per (user, service).
//
// Get and Delete return (nil, nil) when nothing is stored for the pair.
// Implementations must be safe for concurrent use and must never persist
// APIKey or Password in plaintext.
type ConfigStore interface {
	Get(ctx context.Context, userID, serviceName string) (*ServiceConfiguration, error)
	Upsert(ctx context.Context, cfg ServiceConfiguration) (*ServiceConfiguration, error)
	Delete(ctx context.Context, userID, serviceName string) (*ServiceConfiguration, error)

	// List returns every configuration of a user keyed by service name.
	List(ctx context.Context, userID string) (map[string]*ServiceConfiguration, error)
}
