// internal/app/features/dashboard/handler.go
package dashboard

import (
	"net/http"

	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/respond"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"github.com/dalemusser/weblivery/internal/app/workflow"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Handler struct {
	Engine *workflow.Engine
	Log    *zap.Logger
}

func NewHandler(engine *workflow.Engine, logger *zap.Logger) *Handler {
	return &Handler{
		Engine: engine,
		Log:    logger,
	}
}

type dashboardData struct {
	View     string           `json:"view"`
	User     string           `json:"user"`
	Projects []models.Project `json:"projects"`
	Pending  *int             `json:"pending_requests,omitempty"`
}

// ServeDashboard lists the projects visible to the caller. Administrators
// also see how many requests await review.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "dashboard")
	defer cancel()

	projects, err := h.Engine.ListVisibleProjects(ctx, id)
	if err != nil {
		respond.Fail(w, r, h.Log, "list projects", err)
		return
	}

	data := dashboardData{
		View:     id.Role(),
		User:     id.Email(),
		Projects: projects,
	}
	if id.IsAdmin() {
		pending, err := h.Engine.ListPending(ctx, id)
		if err != nil {
			respond.Fail(w, r, h.Log, "list pending requests", err)
			return
		}
		n := len(pending)
		data.Pending = &n
	}
	respond.JSON(w, http.StatusOK, data)
}

// ServeProject shows one project when the caller may see it.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	pid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "projectID"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, "project not found")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "project")
	defer cancel()

	p, err := h.Engine.GetProject(ctx, id, pid)
	if err != nil {
		if respond.Status(err) == http.StatusForbidden && respond.WantsHTML(r) {
			respond.Redirect(w, r, "/forbidden")
			return
		}
		respond.Fail(w, r, h.Log, "get project", err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}
