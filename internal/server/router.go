package server

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/dealsignal/harness/internal/logging"
	"github.com/dealsignal/harness/internal/store"
)

// NewRouter wires the API routes over an archive.
func NewRouter(archive *store.Archive) chi.Router {
	r := chi.NewRouter()
	r.Use(logging.RequestIDMiddleware)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", HealthHandler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", RunsHandler(archive))
		r.Get("/runs/{id}", RunHandler(archive))
		r.Get("/runs/{id}/summary", RunSummaryHandler(archive))
		r.Get("/pricing", PricingHandler())
		r.Get("/stats", StatsHandler(archive))
	})

	return r
}
