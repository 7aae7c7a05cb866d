// internal/app/features/servicerequests/handler.go
package servicerequests

import (
	"net/http"

	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/formutil"
	"github.com/dalemusser/weblivery/internal/app/system/respond"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"github.com/dalemusser/weblivery/internal/app/workflow"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the administrator's review queue.
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

// rosterEntry is one assignable identity shown next to the queue.
type rosterEntry struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
	Role     string `json:"role"`
}

type queueData struct {
	Requests   []models.ServiceRequest `json:"requests"`
	Developers []rosterEntry           `json:"developers"`
}

type declineResult struct {
	Declined string `json:"declined"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /admin/requests                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeList returns the pending requests, oldest first, and the roster of
// identities that can be assigned on accept.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list pending requests")
	defer cancel()

	pending, err := h.Engine.ListPending(ctx, id)
	if err != nil {
		respond.Fail(w, r, h.Log, "list pending requests", err)
		return
	}
	users, err := h.Engine.ListIdentities(ctx, id)
	if err != nil {
		respond.Fail(w, r, h.Log, "list identities", err)
		return
	}

	roster := make([]rosterEntry, 0, len(users))
	for _, u := range users {
		roster = append(roster, rosterEntry{
			ID:       u.ID.Hex(),
			Email:    u.Email,
			Name:     u.Name,
			Nickname: u.Nickname,
			Role:     u.Role,
		})
	}
	respond.JSON(w, http.StatusOK, queueData{Requests: pending, Developers: roster})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/requests/accept                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleAccept converts a pending request into a project. Browsers land on
// the dashboard; API callers get the new project.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	v := errs.NewValidationError()
	input := workflow.AcceptInput{
		RequestID:          in.ObjectID("request_id", v),
		ClientName:         in.String("client_name"),
		ClientEmail:        in.String("client_email"),
		ClientPhone:        in.String("client_phone"),
		ProjectName:        in.String("project_name"),
		ProjectDescription: in.String("project_description"),
		Deadline:           in.Date("deadline", v),
		DeveloperIDs:       in.ObjectIDs("developer_ids", v),
	}
	if err := v.OrNil(); err != nil {
		respond.Fail(w, r, h.Log, "accept request", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "accept request")
	defer cancel()

	p, err := h.Engine.Accept(ctx, id, input)
	if err != nil {
		respond.Fail(w, r, h.Log, "accept request", err)
		return
	}
	respond.Done(w, r, "/dashboard", http.StatusCreated, p)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /admin/requests/decline                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleDecline discards a pending request.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	v := errs.NewValidationError()
	reqID := in.ObjectID("request_id", v)
	if err := v.OrNil(); err != nil {
		respond.Fail(w, r, h.Log, "decline request", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "decline request")
	defer cancel()

	if err := h.Engine.Decline(ctx, id, reqID); err != nil {
		respond.Fail(w, r, h.Log, "decline request", err)
		return
	}
	respond.Done(w, r, "/admin/requests", http.StatusOK, declineResult{Declined: reqID.Hex()})
}
