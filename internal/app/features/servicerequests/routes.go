// internal/app/features/servicerequests/routes.go
package servicerequests

import (
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the review queue under the path where this router is
// mounted (typically "/admin/requests" from bootstrap).
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		// Only signed-in admins can review requests.
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
		pr.Post("/accept", h.HandleAccept)
		pr.Post("/decline", h.HandleDecline)
	})

	return r
}
