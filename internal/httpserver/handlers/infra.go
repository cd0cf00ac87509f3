package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/arrgate/internal/httpserver/deps"
)

type componentStatus struct {
	OK             bool   `json:"ok"`
	ServicesLoaded *int   `json:"services_loaded,omitempty"`
	Capabilities   *int   `json:"capabilities,omitempty"`
	Mode           string `json:"mode,omitempty"`
	Impact         string `json:"impact,omitempty"`
	Error          string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra describes the state of every internal component.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"store":    checkStore(r, d),
			"registry": checkRegistry(d),
			"homepage": {
				OK:   true,
				Mode: importMode(d),
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func overallStatus(components map[string]componentStatus) string {
	if reg, exists := components["registry"]; exists && !reg.OK {
		return "critical" // No services compiled in
	}
	if st, exists := components["store"]; exists && !st.OK {
		return "degraded" // Configurations unreachable
	}
	return "ok"
}

func checkStore(r *http.Request, d deps.Deps) componentStatus {
	if err := pingStore(r.Context(), d); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   d.StoreMode,
			Impact: "configurations-unavailable",
			Error:  "unreachable",
		}
	}
	return componentStatus{OK: true, Mode: d.StoreMode}
}

func checkRegistry(d deps.Deps) componentStatus {
	if d.Registry == nil {
		return componentStatus{OK: false, Error: "registry not initialized"}
	}
	services := len(d.Registry.Definitions())
	capabilities := 0
	for _, def := range d.Registry.Definitions() {
		capabilities += len(def.Capabilities)
	}
	return componentStatus{
		OK:             services > 0,
		ServicesLoaded: &services,
		Capabilities:   &capabilities,
	}
}

func importMode(d deps.Deps) string {
	if d.ReloadTrigger == nil {
		return "disabled"
	}
	return "enabled"
}
