package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/store"
	"github.com/MrSnakeDoc/arrgate/internal/vault"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	v, err := vault.New("0123456789abcdef0123456789abcdef", vault.WithCost(1<<10))
	require.NoError(t, err)
	return NewStore(client, store.NewSealer(v, logger.Nop())), mr
}

func TestUpsertGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Upsert(ctx, domain.ServiceConfiguration{
		UserID:      "u1",
		ServiceName: "Radarr",
		BaseURL:     "http://radarr:7878/",
		APIKey:      "radarr-key",
		IsEnabled:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "radarr", saved.ServiceName)
	assert.Equal(t, "radarr-key", saved.APIKey)

	raw, err := mr.Get(ConfigKey("u1", "radarr"))
	require.NoError(t, err)
	assert.NotContains(t, raw, "radarr-key", "credentials are never stored in plaintext")
	assert.Contains(t, raw, `"encrypted":true`)

	got, err := s.Get(ctx, "u1", "radarr")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "http://radarr:7878", got.BaseURL)
	assert.Equal(t, "radarr-key", got.APIKey)
	assert.True(t, got.IsEnabled)
}

func TestGetMissing(t *testing.T) {
	s, _ := newTestStore(t)
	got, err := s.Get(context.Background(), "u1", "sonarr")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertKeepsCreatedAt(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Upsert(ctx, domain.ServiceConfiguration{UserID: "u1", ServiceName: "sonarr", BaseURL: "http://a", APIKey: "k1", IsEnabled: true})
	require.NoError(t, err)
	second, err := s.Upsert(ctx, domain.ServiceConfiguration{UserID: "u1", ServiceName: "sonarr", BaseURL: "http://b", APIKey: "k2"})
	require.NoError(t, err)

	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.Equal(t, "k2", second.APIKey)
	assert.False(t, second.IsEnabled)
}

func TestDelete(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, err := s.Upsert(ctx, domain.ServiceConfiguration{UserID: "u1", ServiceName: "jellyfin", BaseURL: "http://j", APIKey: "k", IsEnabled: true})
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, "u1", "jellyfin")
	require.NoError(t, err)
	require.NotNil(t, deleted)
	assert.Equal(t, "k", deleted.APIKey)
	assert.False(t, mr.Exists(ConfigKey("u1", "jellyfin")))

	again, err := s.Delete(ctx, "u1", "jellyfin")
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestList(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"radarr", "sonarr"} {
		_, err := s.Upsert(ctx, domain.ServiceConfiguration{UserID: "u1", ServiceName: name, BaseURL: "http://" + name, APIKey: name + "-key", IsEnabled: true})
		require.NoError(t, err)
	}
	_, err := s.Upsert(ctx, domain.ServiceConfiguration{UserID: "u2", ServiceName: "radarr", BaseURL: "http://other", APIKey: "x"})
	require.NoError(t, err)

	// A set member without a record is skipped.
	_, err = mr.SAdd(UserConfigsKey("u1"), "ghost")
	require.NoError(t, err)

	got, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "radarr-key", got["radarr"].APIKey)
	assert.Equal(t, "sonarr-key", got["sonarr"].APIKey)

	empty, err := s.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)

	padded, err := s.List(ctx, "  u1 ")
	require.NoError(t, err)
	assert.Len(t, padded, 2)

	_, err = s.List(ctx, " ")
	assert.ErrorIs(t, err, store.ErrInvalidKey)
}

func TestLegacyPlaintextRecord(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set(ConfigKey("u1", "radarr"),
		`{"userId":"u1","serviceName":"radarr","baseUrl":"http://r","apiKey":"legacy","isEnabled":true}`))

	got, err := s.Get(context.Background(), "u1", "radarr")
	require.NoError(t, err)
	assert.Equal(t, "legacy", got.APIKey)
}

func TestTamperedRecordFailsClosed(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set(ConfigKey("u1", "radarr"),
		`{"userId":"u1","serviceName":"radarr","baseUrl":"http://r","apiKey":"bm90LWEtYmxvYg==","encrypted":true}`))

	_, err := s.Get(context.Background(), "u1", "radarr")
	assert.ErrorIs(t, err, vault.ErrDecryptionFailed)
}

func TestInvalidKeys(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Get(context.Background(), "", "radarr")
	assert.ErrorIs(t, err, store.ErrInvalidKey)
	_, err = s.Upsert(context.Background(), domain.ServiceConfiguration{UserID: "u1"})
	assert.ErrorIs(t, err, store.ErrInvalidKey)
}

func TestPing(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	mr.SetError("ERR server unavailable")
	assert.Error(t, s.Ping(context.Background()))
}

func TestUsers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"bob", "alice"} {
		_, err := s.Upsert(ctx, domain.ServiceConfiguration{
			UserID: u, ServiceName: "sonarr", BaseURL: "http://sonarr:8989", APIKey: "k",
		})
		require.NoError(t, err)
	}
	_, err := s.Delete(ctx, "bob", "sonarr")
	require.NoError(t, err)

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}
