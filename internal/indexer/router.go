package indexer

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new chi router with the admin endpoints
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	// middleware
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS", "DELETE"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", handler.Health)

	r.Route("/api/v1/index", func(r chi.Router) {
		r.Get("/status", handler.Status)
		r.Get("/stats", handler.Stats)
		r.Get("/media/{fileID}", handler.GetMedia)
		r.Delete("/current", handler.Cancel)
		r.Get("/resume", handler.ListResume)
		r.Get("/resume/{chatID}", handler.GetResume)
	})

	return r
}
