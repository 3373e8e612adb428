/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/datasets/*       Export upload and inspection
  /api/report           Monthly summaries and downloads
  /api/holidays/*       Holiday calendar management
  /api/config           Working window and budgets
  /api/admin/*          Admin operations

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Dataset routes
		r.Route("/datasets", func(r chi.Router) {
			r.Post("/", h.UploadDataset)
			r.Get("/current", h.GetDataset)
		})

		// Report routes
		r.Route("/report", func(r chi.Router) {
			r.Get("/", h.GetReport)
			r.Get("/export", h.ExportReport)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Post("/defaults", h.SeedDefaultHolidays)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		// Config routes
		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.GetConfig)
			r.Put("/", h.UpdateConfig)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
