// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/respond"
)

// pageData is the body of every error page.
type pageData struct {
	Title      string `json:"title"`
	IsLoggedIn bool   `json:"is_logged_in"`
	Role       string `json:"role,omitempty"`
	UserName   string `json:"user,omitempty"`
	Message    string `json:"message"`
	BackURL    string `json:"back_url"`
}

// Handler is the errors feature handler. No store needed.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

func newPage(r *http.Request, title, msg, backDefault string) pageData {
	id, signed := auth.CurrentIdentity(r)
	return pageData{
		Title:      title,
		IsLoggedIn: signed,
		Role:       id.Role(),
		UserName:   id.Name(),
		Message:    msg,
		BackURL:    httpnav.ResolveBackURL(r, backDefault),
	}
}

// Forbidden describes an access denial.
// GET /forbidden
func (h *Handler) Forbidden(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusForbidden, newPage(r, "Access denied",
		"You don't have permission to view this page.", "/"))
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusNotFound, newPage(r, "Not found",
		"The page you asked for does not exist.", "/"))
}

// MethodNotAllowed answers a known route called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, newPage(r, "Method not allowed",
		"This page does not accept "+r.Method+" requests.", "/"))
}
