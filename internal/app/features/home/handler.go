package home

import (
	"net/http"

	"github.com/dalemusser/weblivery/internal/app/system/formutil"
	"github.com/dalemusser/weblivery/internal/app/system/respond"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"github.com/dalemusser/weblivery/internal/app/workflow"
	"go.uber.org/zap"
)

// Handler serves the public service-request form.
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

type formField struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	MaxLen   int    `json:"max_len,omitempty"`
}

type formDescription struct {
	Title  string      `json:"title"`
	Action string      `json:"action"`
	Method string      `json:"method"`
	Fields []formField `json:"fields"`
}

var requestForm = formDescription{
	Title:  "Request a service",
	Action: "/",
	Method: http.MethodPost,
	Fields: []formField{
		{Name: "requester_full_name", Required: true, MaxLen: workflow.MaxNameLen},
		{Name: "title", Required: true, MaxLen: workflow.MaxTitleLen},
		{Name: "description", MaxLen: workflow.MaxDescriptionLen},
		{Name: "email", Required: true},
		{Name: "phone"},
		{Name: "whatsapp"},
	},
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – describe the form                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, requestForm)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST / – submit a request                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "submit request")
	defer cancel()

	req, err := h.Engine.Submit(ctx, workflow.SubmitInput{
		RequesterFullName: in.String("requester_full_name"),
		Title:             in.String("title"),
		Description:       in.String("description"),
		Email:             in.String("email"),
		Phone:             in.String("phone"),
		WhatsApp:          in.String("whatsapp"),
	})
	if err != nil {
		respond.Fail(w, r, h.Log, "submit request", err)
		return
	}

	respond.Done(w, r, "/?submitted=1", http.StatusCreated, req)
}
