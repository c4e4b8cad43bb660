/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the planning frontend

ROUTE GROUPS:
  /api/people/*      Roster and rate histories
  /api/projects/*    Projects, tasks and task rates
  /api/forecasts/*   Monthly forecasts, overrides and snapshots
  /api/overtime/*    Overtime reports and payroll submission
  /api/bonuses/*     Planned bonuses and payroll submission
  /healthz           Liveness check

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

// RouterOptions configures cross-cutting router behaviour.
type RouterOptions struct {
	AllowedOrigins []string
}

// DefaultRouterOptions allows the local frontend dev servers.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"}}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/people", func(r chi.Router) {
			r.Get("/", h.ListPeople)
			r.Post("/", h.CreatePerson)
			r.Get("/{id}", h.GetPerson)
			r.Post("/{id}/rates", h.AppendPersonRate)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Post("/{id}/tasks/{taskId}/rates", h.AppendTaskRate)
		})

		r.Post("/time-entries", h.CreateTimeEntry)
		r.Post("/leave", h.CreateLeave)
		r.Post("/approvals", h.CreateApproval)

		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})

		r.Route("/bonuses", func(r chi.Router) {
			r.Post("/", h.CreateBonus)
			r.Post("/{personId}/{month}/submit", h.SubmitBonus)
		})

		// Static segments are matched before {month}
		r.Route("/forecasts", func(r chi.Router) {
			r.Get("/snapshots", h.ListSnapshots)
			r.Get("/compare", h.CompareSnapshots)
			r.Get("/range", h.GetForecastRange)
			r.Get("/{month}", h.GetForecast)
			r.Post("/{month}/snapshots", h.SaveSnapshot)
			r.Put("/{month}/overrides/{kind}/{id}/{field}", h.SetOverride)
			r.Delete("/{month}/overrides/{kind}/{id}/{field}", h.ClearOverride)
		})

		r.Route("/overtime", func(r chi.Router) {
			r.Get("/", h.GetOvertime)
			r.Get("/submission", h.GetOvertimeSubmission)
			r.Post("/submit", h.SubmitOvertime)
		})
	})

	return r
}
