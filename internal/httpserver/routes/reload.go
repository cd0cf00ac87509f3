package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/arrgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/arrgate/internal/httpserver/handlers"
)

func init() { Register("reload", registerReload) }

// POST /reload schedules an immediate Homepage import.
func registerReload(r chi.Router, d deps.Deps) {
	r.With(guarded(d)...).Post("/reload", handlers.Reload(d))
}
