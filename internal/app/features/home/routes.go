package home

import (
	"github.com/dalemusser/weblivery/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the public form. Submissions pass through limiter when one
// is given.
func Routes(h *Handler, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeRoot)
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter.Middleware)
		}
		r.Post("/", h.HandleSubmit)
	})
	return r
}
