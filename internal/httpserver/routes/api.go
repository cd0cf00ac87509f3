package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/arrgate/internal/httpserver/deps"
	"github.com/MrSnakeDoc/arrgate/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/arrgate/internal/httpserver/mw"
)

func init() { Register("api", registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateLimitBurst,
		RefillPerIPPerMin: d.RateLimitPerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
	})

	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Use(guarded(d)...)

		r.Get("/services", handlers.ListServices(d))
		r.Put("/services/{service}", handlers.PutService(d))
		r.Delete("/services/{service}", handlers.DeleteService(d))
		r.Get("/services/{service}/health", handlers.ServiceHealth(d))

		r.Get("/capabilities", handlers.ListCapabilities(d))
		r.With(limit).Post("/capabilities/{name}/invoke", handlers.InvokeCapability(d))
	})
}
