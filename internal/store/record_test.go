package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/vault"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	v, err := vault.New(testSecret, vault.WithCost(1<<10))
	require.NoError(t, err)
	return NewSealer(v, logger.Nop())
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		user, service         string
		wantUser, wantService string
		wantErr               bool
	}{
		{user: "u1", service: "Radarr", wantUser: "u1", wantService: "radarr"},
		{user: " u1 ", service: " sonarr ", wantUser: "u1", wantService: "sonarr"},
		{user: "", service: "radarr", wantErr: true},
		{user: "u1", service: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.user+"/"+tt.service, func(t *testing.T) {
			u, s, err := NormalizeKey(tt.user, tt.service)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, u)
			assert.Equal(t, tt.wantService, s)
		})
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	s := newTestSealer(t)
	cfg := domain.ServiceConfiguration{
		UserID:      "u1",
		ServiceName: "QBittorrent",
		BaseURL:     "http://qbit:8080//",
		APIKey:      "admin:hunter2",
		Username:    "admin",
		Password:    "hunter2",
		IsEnabled:   true,
	}

	rec, err := s.Seal(cfg, nil)
	require.NoError(t, err)

	assert.True(t, rec.Encrypted)
	assert.Equal(t, "qbittorrent", rec.ServiceName)
	assert.Equal(t, "http://qbit:8080", rec.BaseURL)
	assert.NotContains(t, rec.APIKey, "hunter2")
	assert.NotContains(t, rec.Password, "hunter2")
	assert.Equal(t, "admin", rec.Username)

	got, err := s.Open(rec)
	require.NoError(t, err)
	assert.Equal(t, "admin:hunter2", got.APIKey)
	assert.Equal(t, "hunter2", got.Password)
	assert.True(t, got.IsEnabled)
}

func TestSealKeepsCreatedAt(t *testing.T) {
	s := newTestSealer(t)
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return created.Add(48 * time.Hour) }

	rec, err := s.Seal(domain.ServiceConfiguration{UserID: "u1", ServiceName: "radarr", BaseURL: "http://r"}, &Record{CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, created, rec.CreatedAt)
	assert.Equal(t, created.Add(48*time.Hour), rec.UpdatedAt)
	assert.Empty(t, rec.APIKey)
}

func TestSealRequiresVault(t *testing.T) {
	s := NewSealer(nil, nil)
	_, err := s.Seal(domain.ServiceConfiguration{UserID: "u1", ServiceName: "radarr"}, nil)
	assert.ErrorIs(t, err, vault.ErrNotConfigured)
}

func TestOpenLegacyPlaintext(t *testing.T) {
	s := newTestSealer(t)
	got, err := s.Open(Record{UserID: "u1", ServiceName: "radarr", APIKey: "plain-key"})
	require.NoError(t, err)
	assert.Equal(t, "plain-key", got.APIKey)
}

func TestOpenTamperedFailsClosed(t *testing.T) {
	s := newTestSealer(t)
	rec, err := s.Seal(domain.ServiceConfiguration{UserID: "u1", ServiceName: "radarr", APIKey: "k"}, nil)
	require.NoError(t, err)

	rec.APIKey = strings.Repeat("A", len(rec.APIKey))
	_, err = s.Open(rec)
	assert.ErrorIs(t, err, vault.ErrDecryptionFailed)
}
