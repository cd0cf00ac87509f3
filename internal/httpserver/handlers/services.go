package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/arrgate/internal/domain"
	"github.com/MrSnakeDoc/arrgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/store"
)

// serviceRequest is the body of PUT /api/users/{userID}/services/{service}.
// Omitted or redacted secrets keep the stored value.
type serviceRequest struct {
	BaseURL   string  `json:"baseUrl"`
	APIKey    *string `json:"apiKey"`
	Username  *string `json:"username"`
	Password  *string `json:"password"`
	IsEnabled *bool   `json:"isEnabled"`
}

type serviceHealthResponse struct {
	Service string `json:"service"`
	Healthy bool   `json:"healthy"`
}

// ListServices returns the user's configurations with secrets redacted.
func ListServices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		configs, err := d.Store.List(r.Context(), userID)
		if errors.Is(err, store.ErrInvalidKey) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			d.Logger.Error("failed to list configurations",
				logger.User(userID),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load configurations")
			return
		}

		names := make([]string, 0, len(configs))
		for name := range configs {
			names = append(names, name)
		}
		sort.Strings(names)

		out := make([]domain.ServiceConfiguration, 0, len(names))
		for _, name := range names {
			out = append(out, configs[name].Redacted())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PutService creates or updates one configuration.
func PutService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		serviceName := strings.ToLower(chi.URLParam(r, "service"))

		if _, ok := d.Registry.Definition(serviceName); !ok {
			writeError(w, http.StatusNotFound, "unknown service "+serviceName)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		var req serviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		existing, err := d.Store.Get(r.Context(), userID, serviceName)
		if err != nil {
			d.Logger.Error("failed to load configuration",
				logger.User(userID),
				logger.Service(serviceName),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load configuration")
			return
		}

		cfg := mergeServiceRequest(userID, serviceName, req, existing)
		if err := cfg.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		saved, err := d.Store.Upsert(r.Context(), cfg)
		if err != nil {
			if errors.Is(err, store.ErrInvalidKey) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			d.Logger.Error("failed to save configuration",
				logger.User(userID),
				logger.Service(serviceName),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to save configuration")
			return
		}

		d.Logger.Info("service configuration saved",
			logger.User(userID),
			logger.Service(serviceName),
			logger.Bool("enabled", saved.IsEnabled))
		writeJSON(w, http.StatusOK, saved.Redacted())
	}
}

func mergeServiceRequest(userID, serviceName string, req serviceRequest, existing *domain.ServiceConfiguration) domain.ServiceConfiguration {
	cfg := domain.ServiceConfiguration{
		UserID:      userID,
		ServiceName: serviceName,
		IsEnabled:   true,
	}
	if existing != nil {
		cfg = *existing
	}

	cfg.BaseURL = req.BaseURL
	if req.APIKey != nil && *req.APIKey != domain.RedactedValue {
		cfg.APIKey = *req.APIKey
	}
	if req.Username != nil {
		cfg.Username = *req.Username
	}
	if req.Password != nil && *req.Password != domain.RedactedValue {
		cfg.Password = *req.Password
	}
	if req.IsEnabled != nil {
		cfg.IsEnabled = *req.IsEnabled
	}
	return cfg
}

// DeleteService removes one configuration.
func DeleteService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		serviceName := strings.ToLower(chi.URLParam(r, "service"))

		deleted, err := d.Store.Delete(r.Context(), userID, serviceName)
		if err != nil {
			d.Logger.Error("failed to delete configuration",
				logger.User(userID),
				logger.Service(serviceName),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to delete configuration")
			return
		}
		if deleted == nil {
			writeError(w, http.StatusNotFound, "service not configured")
			return
		}

		d.Logger.Info("service configuration deleted",
			logger.User(userID),
			logger.Service(serviceName))
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServiceHealth probes one configured service.
func ServiceHealth(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		serviceName := strings.ToLower(chi.URLParam(r, "service"))

		cfg, err := d.Store.Get(r.Context(), userID, serviceName)
		if err != nil {
			d.Logger.Error("failed to load configuration",
				logger.User(userID),
				logger.Service(serviceName),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load configuration")
			return
		}
		if cfg == nil {
			writeError(w, http.StatusNotFound, "service not configured")
			return
		}

		ctx := r.Context()
		if d.ProbeTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.ProbeTimeout)
			defer cancel()
		}

		healthy := d.Registry.CheckServiceHealth(ctx, serviceName, cfg)
		d.Metrics.SetServiceUp(userID, serviceName, healthy)
		writeJSON(w, http.StatusOK, serviceHealthResponse{Service: serviceName, Healthy: healthy})
	}
}
