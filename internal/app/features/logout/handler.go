// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/dalemusser/weblivery/internal/app/system/auditlog"
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/respond"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// ServeLogout handles GET /logout. Without a session it only redirects.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	id, signedIn := auth.CurrentIdentity(r)

	ended, err := h.SessionMgr.Logout(w, r)
	if err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	if ended && signedIn {
		h.AuditLog.Logout(r.Context(), r, id.ID())
	}

	if respond.WantsHTML(r) {
		respond.Redirect(w, r, "/")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"signed_out": ended})
}
