package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/arrgate/internal/apierr"
	"github.com/MrSnakeDoc/arrgate/internal/auth"
	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/retry"
)

type fakeStore struct {
	mu      sync.Mutex
	configs map[string]*domain.ServiceConfiguration
	err     error
}

func newFakeStore(cfgs ...domain.ServiceConfiguration) *fakeStore {
	s := &fakeStore{configs: map[string]*domain.ServiceConfiguration{}}
	for i := range cfgs {
		cfg := cfgs[i]
		s.configs[cfg.UserID+"/"+cfg.ServiceName] = &cfg
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, userID, serviceName string) (*domain.ServiceConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	cfg, ok := s.configs[userID+"/"+serviceName]
	if !ok {
		return nil, nil
	}
	out := *cfg
	return &out, nil
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func radarrClient(store ConfigGetter) *Client {
	return New(Options{
		ServiceName:      "radarr",
		DisplayName:      "Radarr",
		APIVersionPrefix: "/api/v3",
		Auth:             auth.APIKeyHeader("X-Api-Key"),
		RequireAPIKey:    true,
		StatusEndpoint:   "/system/status",
	}, Deps{Store: store, Retry: fastRetry()})
}

func radarrConfig(baseURL string) domain.ServiceConfiguration {
	return domain.ServiceConfiguration{
		UserID:      "u1",
		ServiceName: "radarr",
		BaseURL:     baseURL + "/",
		APIKey:      "secret-key",
		IsEnabled:   true,
	}
}

type movie struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *domain.ServiceConfiguration
		kind apierr.ConfigErrorKind
	}{
		{name: "absent", cfg: nil, kind: apierr.NotConfiguredKind},
		{name: "blank url", cfg: &domain.ServiceConfiguration{UserID: "u1", ServiceName: "radarr", APIKey: "k", IsEnabled: true}, kind: apierr.NotConfiguredKind},
		{name: "disabled", cfg: &domain.ServiceConfiguration{UserID: "u1", ServiceName: "radarr", BaseURL: "http://x", APIKey: "k"}, kind: apierr.DisabledKind},
		{name: "missing key", cfg: &domain.ServiceConfiguration{UserID: "u1", ServiceName: "radarr", BaseURL: "http://x", APIKey: "  ", IsEnabled: true}, kind: apierr.MissingCredentialKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			if tt.cfg != nil {
				store = newFakeStore(*tt.cfg)
			}
			_, err := Request[[]movie](context.Background(), radarrClient(store), "u1", "/movie", RequestOptions{})

			var ce *apierr.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, "Radarr", ce.Service)
		})
	}
}

func TestStoreErrorIsWrapped(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("redis down")

	_, err := Request[[]movie](context.Background(), radarrClient(store), "u1", "/movie", RequestOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.err)
	assert.False(t, apierr.IsConfigError(err))
}

func TestRequestBuildsURLAndHeaders(t *testing.T) {
	var gotPath, gotQuery, gotKey, gotAccept, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-Api-Key")
		gotAccept = r.Header.Get("Accept")
		gotCustom = r.Header.Get("X-Custom")
		_ = json.NewEncoder(w).Encode([]movie{{Title: "Alien", Year: 1979}})
	}))
	defer srv.Close()

	c := radarrClient(newFakeStore(radarrConfig(srv.URL)))
	got, err := Request[[]movie](context.Background(), c, "u1", "/movie/lookup", RequestOptions{
		Query:   url.Values{"term": {"alien"}},
		Headers: http.Header{"X-Custom": {"1"}},
	})

	require.NoError(t, err)
	assert.Equal(t, []movie{{Title: "Alien", Year: 1979}}, got)
	assert.Equal(t, "/api/v3/movie/lookup", gotPath)
	assert.Equal(t, "term=alien", gotQuery)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "1", gotCustom)
}

func TestCallerHeadersOverrideDefaults(t *testing.T) {
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		_, _ = io.WriteString(w, "plain")
	}))
	defer srv.Close()

	c := radarrClient(newFakeStore(radarrConfig(srv.URL)))
	got, err := Request[string](context.Background(), c, "u1", "/log", RequestOptions{
		Headers: http.Header{"Accept": {"text/plain"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "plain", got)
	assert.Equal(t, "text/plain", gotAccept)
}

func TestNoContentReturnsZeroValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := radarrClient(newFakeStore(radarrConfig(srv.URL)))
	got, err := Request[*movie](context.Background(), c, "u1", "/movie/1", RequestOptions{Method: http.MethodDelete})

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBadRequestIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `[{"propertyName":"TmdbId","errorMessage":"must not be empty"}]`)
	}))
	defer srv.Close()

	c := radarrClient(newFakeStore(radarrConfig(srv.URL)))
	_, err := Request[movie](context.Background(), c, "u1", "/movie", RequestOptions{
		Method: http.MethodPost,
		Body:   movie{Title: "Alien"},
	})

	var se *apierr.ServiceClientError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "TmdbId: must not be empty", se.Message)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTransientStatusIsRetriedWithSameBody(t *testing.T) {
	var calls int32
	var bodies []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"title":"Alien","year":1979}`)
	}))
	defer srv.Close()

	c := radarrClient(newFakeStore(radarrConfig(srv.URL)))
	got, err := Request[movie](context.Background(), c, "u1", "/movie", RequestOptions{
		Method: http.MethodPost,
		Body:   movie{Title: "Alien"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Alien", got.Title)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.Len(t, bodies, 3)
	for _, b := range bodies {
		assert.JSONEq(t, `{"title":"Alien","year":0}`, b)
	}
}

func TestTransientStatusExhaustsBudget(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := radarrClient(newFakeStore(radarrConfig(srv.URL)))
	_, err := Request[movie](context.Background(), c, "u1", "/movie/1", RequestOptions{})

	var se *apierr.ServiceClientError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "Radarr API error: 502 Bad Gateway", se.Message)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestBearerTemplate(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	store := newFakeStore(domain.ServiceConfiguration{
		UserID: "u1", ServiceName: "jellyfin", BaseURL: srv.URL, APIKey: "tok", IsEnabled: true,
	})
	c := New(Options{
		ServiceName: "jellyfin",
		DisplayName: "Jellyfin",
		Auth:        auth.BearerToken(`MediaBrowser Token="{apiKey}"`),
	}, Deps{Store: store, Retry: fastRetry()})

	_, err := Request[map[string]any](context.Background(), c, "u1", "/Sessions", RequestOptions{})
	require.NoError(t, err)
	assert.Equal(t, `MediaBrowser Token="tok"`, gotAuth)
	assert.Equal(t, "/Sessions", gotPath)
}

func TestProbe(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/system/status" || r.Header.Get("X-Api-Key") != "secret-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"version":"5.0"}`)
	}))
	defer healthy.Close()

	var failing int32
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&failing, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	c := radarrClient(newFakeStore())

	ok := radarrConfig(healthy.URL)
	assert.True(t, c.Probe(context.Background(), &ok))

	bad := radarrConfig(broken.URL)
	assert.False(t, c.Probe(context.Background(), &bad))
	assert.EqualValues(t, 1, atomic.LoadInt32(&failing), "probes never retry")

	wrongKey := radarrConfig(healthy.URL)
	wrongKey.APIKey = "nope"
	assert.False(t, c.Probe(context.Background(), &wrongKey))

	assert.False(t, c.Probe(context.Background(), nil))
}
