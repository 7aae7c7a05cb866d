// internal/app/features/login/handler.go
package login

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/dalemusser/weblivery/internal/app/system/auditlog"
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/credentials"
	"github.com/dalemusser/weblivery/internal/app/system/formutil"
	"github.com/dalemusser/weblivery/internal/app/system/ratelimit"
	"github.com/dalemusser/weblivery/internal/app/system/respond"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type Handler struct {
	Users      credentials.EmailLookup
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Limiter    *ratelimit.LoginLimiter
	Log        *zap.Logger
}

func NewHandler(
	users credentials.EmailLookup,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	limiter *ratelimit.LoginLimiter,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:      users,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
		Limiter:    limiter,
		Log:        logger,
	}
}

type loginForm struct {
	Action    string   `json:"action"`
	Fields    []string `json:"fields"`
	ReturnURL string   `json:"return,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type sessionInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
	Role     string `json:"role"`
	Redirect string `json:"redirect"`
}

const invalidCredentials = "invalid email or password"

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	ret := query.Get(r, "return")
	if _, ok := auth.CurrentIdentity(r); ok && respond.WantsHTML(r) {
		respond.Redirect(w, r, urlutil.SafeReturn(ret, "", "/dashboard"))
		return
	}

	respond.JSON(w, http.StatusOK, loginForm{
		Action:    "/login",
		Fields:    []string{"email", "password", "return"},
		ReturnURL: ret,
		Error:     query.Get(r, "error"),
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	in, err := formutil.Parse(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := in.String("email")
	password := in.String("password")
	ret := in.String("return")

	if email == "" || password == "" {
		h.fail(w, r, http.StatusUnprocessableEntity, "email and password are required", ret)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, email); !ok {
			h.AuditLog.LoginFailedRateLimit(ctx, r, email)
			w.Header().Set("Retry-After", "60")
			h.fail(w, r, http.StatusTooManyRequests, msg, ret)
			return
		}
	}

	u, err := credentials.Check(ctx, h.Users, email, password)
	switch {
	case err == nil:
	case errors.Is(err, credentials.ErrUnknownEmail):
		h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
		h.fail(w, r, http.StatusUnauthorized, invalidCredentials, ret)
		return
	case errors.Is(err, credentials.ErrWrongPassword):
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, u.Email)
		h.fail(w, r, http.StatusUnauthorized, invalidCredentials, ret)
		return
	default:
		respond.Fail(w, r, h.Log, "login", err)
		return
	}

	if err := h.SessionMgr.Login(w, r, u); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		respond.Error(w, http.StatusInternalServerError, "unable to create session")
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Email)

	dest := urlutil.SafeReturn(ret, "", "/dashboard")
	respond.Done(w, r, dest, http.StatusOK, sessionInfo{
		ID:       u.ID.Hex(),
		Email:    u.Email,
		Name:     u.Name,
		Nickname: u.Nickname,
		Role:     u.Role,
		Redirect: dest,
	})
}

// fail answers a rejected attempt. Browsers go back to the form with the
// message in the query string.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg, ret string) {
	if respond.WantsHTML(r) {
		q := url.Values{"error": {msg}}
		if ret != "" {
			q.Set("return", ret)
		}
		respond.Redirect(w, r, "/login?"+q.Encode())
		return
	}
	respond.Error(w, status, msg)
}
