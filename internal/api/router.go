package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/taskcollector/internal/collector"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *collector.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents and whole-document operations.
	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)
	r.Post("/documents/*", h.ApplyOperation)

	// Stateless transformation of posted text.
	r.Post("/transform", h.Transform)

	// Task index queries.
	r.Get("/tasks", h.ListTasks)

	// Live settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
