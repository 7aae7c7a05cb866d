// Package respond writes the portal's HTTP responses: JSON bodies for API
// callers and redirects for browsers.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/weblivery/internal/domain/errs"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error body.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Error: msg})
}

// WantsHTML reports whether the caller is a browser (or HTMX) that should be
// redirected rather than handed a JSON body.
func WantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// Redirect sends browsers to dest. HTMX requests get an HX-Redirect header
// so the whole page navigates.
func Redirect(w http.ResponseWriter, r *http.Request, dest string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// Done finishes a successful mutation: browsers are redirected to dest,
// API callers receive v as JSON with status.
func Done(w http.ResponseWriter, r *http.Request, dest string, status int, v any) {
	if WantsHTML(r) {
		Redirect(w, r, dest)
		return
	}
	JSON(w, status, v)
}

// Status maps a domain error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrDuplicate), errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errs.IsValidation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Fail writes err as a JSON error. Server errors are logged with the
// operation name and answered with a generic message; domain errors carry
// their own text.
func Fail(w http.ResponseWriter, r *http.Request, log *zap.Logger, op string, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		log.Error(op+" failed", zap.Error(err), zap.String("path", r.URL.Path))
		Error(w, status, "internal error")
		return
	}
	body := ErrorBody{Error: err.Error()}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		body.Error = "invalid input"
		body.Fields = ve.Fields
	}
	JSON(w, status, body)
}
