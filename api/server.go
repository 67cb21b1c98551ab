/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:       Request logging
  2. Recoverer:    Panic recovery (500 instead of crash)
  3. RequestID:    Unique ID per request for tracing
  4. StripSlashes: /api/depreciaciones/ and /api/depreciaciones are the same route
  5. CORS:         Cross-origin requests for frontend
  6. requireStore: 503 on storage-backed routes when the database failed to open

ROUTE GROUPS:
  /api/health               Liveness + storage check (always mounted)
  /api/depreciaciones/*     Depreciation engine
  /api/maquinarias/*        Machinery and sub-records
  /api/vencimientos         Expiry reminders
  /api/admin/*              Reconciler history and manual run
  /api/scenarios/*          Demo fleets (resets the database)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultCORSOrigins is used when NewRouter receives no origins.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	if len(corsOrigins) == 0 {
		corsOrigins = DefaultCORSOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(requireStore(h))

			// Depreciation routes
			r.Route("/depreciaciones", func(r chi.Router) {
				r.Post("/", h.CreateDepreciacion)
				r.Get("/{asset_id}", h.GetDepreciacion)
				r.Post("/{asset_id}/recompute", h.RecomputeDepreciacion)
			})

			// Machinery routes
			r.Route("/maquinarias", func(r chi.Router) {
				r.Get("/", h.ListMaquinarias)
				r.Post("/", h.CreateMaquinaria)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetMaquinaria)
					r.Put("/", h.UpdateMaquinaria)
					r.Delete("/", h.DeleteMaquinaria)
					r.Get("/pronostico", h.GetPronostico)

					// Sub-record routes
					r.Route("/{kind}", func(r chi.Router) {
						r.Get("/", h.ListRegistros)
						r.Post("/", h.CreateRegistro)
						r.Get("/{record_id}", h.GetRegistro)
						r.Put("/{record_id}", h.UpdateRegistro)
						r.Delete("/{record_id}", h.DeleteRegistro)
					})
				})
			})

			r.Get("/vencimientos", h.ListVencimientos)

			// Admin routes
			r.Route("/admin/reconciliation", func(r chi.Router) {
				r.Get("/runs", h.ListReconciliationRuns)
				r.Post("/run", h.TriggerReconciliation)
			})

			// Scenario routes
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		})
	})

	return r
}

// requireStore answers 503 while the handler has no store.
func requireStore(h *Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.Store == nil {
				writeError(w, http.StatusServiceUnavailable, "Storage unavailable", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
