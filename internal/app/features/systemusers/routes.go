// internal/app/features/systemusers/routes.go
package systemusers

import (
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts identity management under the path where this router is
// mounted (typically "/admin/users" from bootstrap).
//
// Example mount from bootstrap:
//
//	h := systemusers.NewHandler(engine, logger)
//	r.Mount("/admin/users", systemusers.Routes(h, sessionMgr))
//	r.Mount("/admin/register", systemusers.RegisterRoutes(h, sessionMgr))
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		// Only signed-in admins can manage identities.
		pr.Use(sm.RequireRole(models.RoleAdmin))

		pr.Get("/", h.ServeList)
		pr.Post("/{userID}", h.HandleUpdate)
	})

	return r
}

// RegisterRoutes mounts the identity registration endpoint.
func RegisterRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleAdmin))
		pr.Post("/", h.HandleRegister)
	})

	return r
}
