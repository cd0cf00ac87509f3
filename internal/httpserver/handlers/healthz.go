package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/arrgate/internal/httpserver/deps"
)

type buildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

type healthzResponse struct {
	Status        string    `json:"status"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Store         string    `json:"store,omitempty"`
	Services      []string  `json:"services"`
	Build         buildInfo `json:"build"`
}

// Healthz is the liveness probe. It never touches the store or upstreams.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{Version: d.Version, Commit: d.Commit, BuildDate: d.BuildDate, GoVersion: d.GoVersion}

	services := []string{}
	if d.Registry != nil {
		for _, def := range d.Registry.Definitions() {
			services = append(services, def.Name)
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(d.StartTime).Seconds(),
			Store:         d.StoreMode,
			Services:      services,
			Build:         build,
		})
	}
}
