package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const requestTimeout = 30 * time.Second

func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", h.HealthCheck)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
	})

	r.Route("/shared/{token}", func(r chi.Router) {
		r.Get("/", h.AccessShared)
		r.Post("/", h.AccessShared)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/users/me", h.Me)
		r.Get("/audit", h.ListAudit)

		r.Route("/snippets", func(r chi.Router) {
			r.Post("/", h.CreateSnippet)
			r.Get("/", h.ListSnippets)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSnippet)
				r.Put("/", h.UpdateSnippet)
				r.Delete("/", h.DeleteSnippet)
				r.Post("/share", h.CreateShare)
				r.Get("/shares", h.ListShares)
			})
		})

		r.Delete("/shares/{id}", h.DeactivateShare)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	})

	return r
}
