// Package memory is a process-local configuration store. It is used when no
// Redis address is configured and in tests; records are sealed exactly as
// they would be in Redis.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/store"
)

// Store keeps sealed records per user
type Store struct {
	mu      sync.RWMutex
	records map[string]map[string]store.Record // userID -> serviceName -> record
	sealer  *store.Sealer
}

var _ domain.ConfigStore = (*Store)(nil)

// NewStore creates an empty memory store
func NewStore(sealer *store.Sealer) *Store {
	return &Store{
		records: make(map[string]map[string]store.Record),
		sealer:  sealer,
	}
}

// Get retrieves one configuration, or nil when none is stored
func (s *Store) Get(_ context.Context, userID, serviceName string) (*domain.ServiceConfiguration, error) {
	userID, serviceName, err := store.NormalizeKey(userID, serviceName)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	rec, ok := s.records[userID][serviceName]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return s.sealer.Open(rec)
}

// Upsert seals and stores cfg
func (s *Store) Upsert(_ context.Context, cfg domain.ServiceConfiguration) (*domain.ServiceConfiguration, error) {
	userID, serviceName, err := store.NormalizeKey(cfg.UserID, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *store.Record
	if rec, ok := s.records[userID][serviceName]; ok {
		existing = &rec
	}

	rec, err := s.sealer.Seal(cfg, existing)
	if err != nil {
		return nil, err
	}

	if s.records[userID] == nil {
		s.records[userID] = make(map[string]store.Record)
	}
	s.records[userID][serviceName] = rec

	return s.sealer.Open(rec)
}

// Delete removes a configuration and returns what was stored, or nil
func (s *Store) Delete(_ context.Context, userID, serviceName string) (*domain.ServiceConfiguration, error) {
	userID, serviceName, err := store.NormalizeKey(userID, serviceName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	rec, ok := s.records[userID][serviceName]
	if ok {
		delete(s.records[userID], serviceName)
		if len(s.records[userID]) == 0 {
			delete(s.records, userID)
		}
	}
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return s.sealer.Open(rec)
}

// List returns every configuration of a user keyed by service name
func (s *Store) List(_ context.Context, userID string) (map[string]*domain.ServiceConfiguration, error) {
	userID, err := store.NormalizeUser(userID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	recs := make([]store.Record, 0, len(s.records[userID]))
	for _, rec := range s.records[userID] {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make(map[string]*domain.ServiceConfiguration, len(recs))
	for _, rec := range recs {
		cfg, err := s.sealer.Open(rec)
		if err != nil {
			return nil, err
		}
		out[rec.ServiceName] = cfg
	}
	return out, nil
}

// Count returns the number of stored configurations across all users
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, byService := range s.records {
		n += len(byService)
	}
	return n
}

// Users returns every user with at least one stored configuration
func (s *Store) Users(_ context.Context) ([]string, error) {
	s.mu.RLock()
	users := make([]string, 0, len(s.records))
	for userID := range s.records {
		users = append(users, userID)
	}
	s.mu.RUnlock()

	sort.Strings(users)
	return users, nil
}
