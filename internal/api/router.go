package api

import (
	"drivetime-accessibility/internal/api/handlers"
	"drivetime-accessibility/internal/domain"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter serves the artifacts of one completed run, read-only.
func NewRouter(report *domain.Report) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	rep := &handlers.ReportHandler{Report: report}

	r.Get("/health", handlers.Health)
	r.Route("/report", func(r chi.Router) {
		r.Get("/summary", rep.Summary)
		r.Get("/areas.geojson", rep.Areas)
		r.Get("/overview.geojson", rep.Overview)
		r.Get("/longest.geojson", rep.Longest)
	})

	return r
}
