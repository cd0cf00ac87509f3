package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/store"
)

// Store persists service configurations in Redis. Credentials are sealed
// before they leave the process.
type Store struct {
	client *redis.Client
	sealer *store.Sealer
}

var _ domain.ConfigStore = (*Store)(nil)

// NewStore creates a new Redis store
func NewStore(client *redis.Client, sealer *store.Sealer) *Store {
	return &Store{
		client: client,
		sealer: sealer,
	}
}

// Ping checks the connection to Redis
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get retrieves one configuration, or nil when none is stored
func (s *Store) Get(ctx context.Context, userID, serviceName string) (*domain.ServiceConfiguration, error) {
	userID, serviceName, err := store.NormalizeKey(userID, serviceName)
	if err != nil {
		return nil, err
	}

	rec, err := s.getRecord(ctx, userID, serviceName)
	if err != nil || rec == nil {
		return nil, err
	}
	return s.sealer.Open(*rec)
}

func (s *Store) getRecord(ctx context.Context, userID, serviceName string) (*store.Record, error) {
	data, err := s.client.Get(ctx, ConfigKey(userID, serviceName)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}

	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return &rec, nil
}

// Upsert seals and stores cfg, returning the stored configuration
func (s *Store) Upsert(ctx context.Context, cfg domain.ServiceConfiguration) (*domain.ServiceConfiguration, error) {
	userID, serviceName, err := store.NormalizeKey(cfg.UserID, cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	existing, err := s.getRecord(ctx, userID, serviceName)
	if err != nil {
		return nil, err
	}

	rec, err := s.sealer.Seal(cfg, existing)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, ConfigKey(userID, serviceName), data, 0)
		pipe.SAdd(ctx, UserConfigsKey(userID), serviceName)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}

	return s.sealer.Open(rec)
}

// Delete removes a configuration and returns what was stored, or nil
func (s *Store) Delete(ctx context.Context, userID, serviceName string) (*domain.ServiceConfiguration, error) {
	userID, serviceName, err := store.NormalizeKey(userID, serviceName)
	if err != nil {
		return nil, err
	}

	rec, err := s.getRecord(ctx, userID, serviceName)
	if err != nil || rec == nil {
		return nil, err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, ConfigKey(userID, serviceName))
		pipe.SRem(ctx, UserConfigsKey(userID), serviceName)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete configuration: %w", err)
	}

	return s.sealer.Open(*rec)
}

// List returns every configuration of a user keyed by service name
func (s *Store) List(ctx context.Context, userID string) (map[string]*domain.ServiceConfiguration, error) {
	userID, err := store.NormalizeUser(userID)
	if err != nil {
		return nil, err
	}

	names, err := s.client.SMembers(ctx, UserConfigsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get configured services: %w", err)
	}

	out := make(map[string]*domain.ServiceConfiguration, len(names))
	if len(names) == 0 {
		return out, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = ConfigKey(userID, name)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get configurations: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Stale set member whose record is gone
			continue
		}
		var rec store.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal configuration %s: %w", names[i], err)
		}
		cfg, err := s.sealer.Open(rec)
		if err != nil {
			return nil, err
		}
		out[names[i]] = cfg
	}

	return out, nil
}

// Users returns every user with at least one stored configuration
func (s *Store) Users(ctx context.Context) ([]string, error) {
	var users []string
	iter := s.client.Scan(ctx, 0, KeyPrefixUserConfigs+"*", 100).Iterator()
	for iter.Next(ctx) {
		users = append(users, strings.TrimPrefix(iter.Val(), KeyPrefixUserConfigs))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}
	sort.Strings(users)
	return users, nil
}
