package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/arrgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/arrgate/internal/httpserver/mw"
	"github.com/MrSnakeDoc/arrgate/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type group struct {
	name string
	reg  Registrar
}

var groups []group

// Register adds a named route group. Called from init() in each routes file.
func Register(name string, reg Registrar) {
	groups = append(groups, group{name: name, reg: reg})
}

// RegisterAll mounts every registered group on r and returns their names
// in registration order. Called once from httpserver.New().
func RegisterAll(r chi.Router, d deps.Deps) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		g.reg(r, d)
		names = append(names, g.name)
	}
	if d.Logger != nil {
		d.Logger.Debug("routes mounted", logger.Int("groups", len(names)))
	}
	return names
}

// private restricts a route to the allowed CIDRs.
func private(d deps.Deps) Middleware {
	return mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

// guarded adds host enforcement on top of private.
func guarded(d deps.Deps) []Middleware {
	return []Middleware{private(d), mw.EnforceHost(d.AllowedHosts, d.Logger)}
}
