// internal/app/features/systemusers/handler.go
package systemusers

import (
	"net/http"

	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/formutil"
	"github.com/dalemusser/weblivery/internal/app/system/respond"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"github.com/dalemusser/weblivery/internal/app/workflow"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler lets administrators manage identities.
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

type listData struct {
	Users []models.User `json:"users"`
}

// ServeList handles GET /admin/users.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list identities")
	defer cancel()

	users, err := h.Engine.ListIdentities(ctx, id)
	if err != nil {
		respond.Fail(w, r, h.Log, "list identities", err)
		return
	}
	respond.JSON(w, http.StatusOK, listData{Users: users})
}

// HandleRegister handles POST /admin/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "register identity")
	defer cancel()

	u, err := h.Engine.RegisterIdentity(ctx, id, workflow.RegisterInput{
		Email:    in.String("email"),
		Password: in.String("password"),
		Name:     in.String("name"),
		Nickname: in.String("nickname"),
		Role:     in.String("role"),
	})
	if err != nil {
		respond.Fail(w, r, h.Log, "register identity", err)
		return
	}
	respond.Done(w, r, "/admin/users", http.StatusCreated, u)
}

// HandleUpdate handles POST /admin/users/{userID}. An empty password keeps
// the current one.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	uid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, http.StatusNotFound, "identity not found")
		return
	}
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update identity")
	defer cancel()

	u, err := h.Engine.UpdateIdentity(ctx, id, uid, workflow.UpdateIdentityInput{
		Name:     in.String("name"),
		Nickname: in.String("nickname"),
		Password: in.String("password"),
	})
	if err != nil {
		respond.Fail(w, r, h.Log, "update identity", err)
		return
	}
	respond.Done(w, r, "/admin/users", http.StatusOK, u)
}
