package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/arrgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
	"github.com/MrSnakeDoc/arrgate/internal/registry"
	"github.com/MrSnakeDoc/arrgate/internal/store"
)

// ApprovalHeader must be "true" to invoke a capability that changes state.
const ApprovalHeader = "X-Arrgate-Approved"

// ListCapabilities returns the tools enabled for the user, in catalog order.
func ListCapabilities(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		enabled, err := d.Registry.EnabledFor(r.Context(), d.Store, userID)
		if errors.Is(err, store.ErrInvalidKey) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			d.Logger.Error("failed to resolve capabilities",
				logger.User(userID),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load configurations")
			return
		}

		out := make([]*registry.Tool, 0, len(enabled.Names))
		for _, name := range enabled.Names {
			out = append(out, enabled.Tools[name])
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// InvokeCapability runs one tool with the JSON request body as arguments.
// Upstream failures are reported in the result, not as HTTP errors.
func InvokeCapability(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		name := chi.URLParam(r, "name")

		tool, ok, err := d.Registry.ToolFor(r.Context(), d.Store, userID, name)
		if err != nil {
			if errors.Is(err, store.ErrInvalidKey) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			d.Logger.Error("failed to resolve capability",
				logger.User(userID),
				logger.String("capability", name),
				logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load configurations")
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "capability "+name+" is not available")
			return
		}

		if tool.RequiresApproval && !strings.EqualFold(r.Header.Get(ApprovalHeader), "true") {
			writeError(w, http.StatusForbidden, "capability "+name+" requires approval")
			return
		}

		args, err := readBody(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result := tool.Invoke(r.Context(), args)
		if !result.OK() {
			d.Logger.Warn("capability failed",
				logger.User(userID),
				logger.String("capability", name),
				logger.String("error", result.Error))
		} else {
			d.Logger.Info("capability invoked",
				logger.User(userID),
				logger.String("capability", name))
		}
		writeJSON(w, http.StatusOK, result)
	}
}
