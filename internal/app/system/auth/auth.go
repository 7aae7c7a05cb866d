package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/weblivery/internal/app/system/respond"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
)

// UserFetcher loads the identity named by a session on every request, so
// profile and role changes apply immediately. Both identity store backends
// satisfy it.
type UserFetcher interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// SessionManager is the authentication gate: it establishes and tears down
// cookie sessions and turns a session into an Identity for each request.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	users UserFetcher
	log   *zap.Logger
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure with SameSite=None; in local development over http
// they are SameSite=Lax so the browser accepts them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		return nil, fmt.Errorf("session name is empty")
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}
	if maxAge > 0 {
		store.MaxAge(int(maxAge.Seconds()))
	}

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher wires the identity store. Without one, no request is ever
// authenticated.
func (m *SessionManager) SetUserFetcher(f UserFetcher) {
	m.users = f
}

// Store exposes the underlying cookie store (cookie options for deletion).
func (m *SessionManager) Store() *sessions.CookieStore {
	return m.store
}

// Name is the session cookie name.
func (m *SessionManager) Name() string {
	return m.name
}

// GetSession returns the request's session. On a decode error a fresh
// session is returned together with the error.
func (m *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, m.name)
}

// Login marks the session authenticated for u. Calling it again for the
// same user simply rewrites the same values.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, u *models.User) error {
	sess, err := m.GetSession(r)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			m.log.Warn("session cookie invalid, using fresh session",
				zap.Error(err), zap.String("user_id", u.ID.Hex()))
		} else {
			m.log.Error("session store error during login, using fresh session",
				zap.Error(err), zap.String("user_id", u.ID.Hex()))
		}
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID.Hex()
	return sess.Save(r, w)
}

// Logout deletes the session cookie when the request carries an
// authenticated session. It reports whether there was one; without a
// session it writes nothing.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) (bool, error) {
	sess, err := m.GetSession(r)
	if err != nil {
		m.log.Warn("session decode failed during logout", zap.Error(err))
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return false, nil
	}

	delete(sess.Values, isAuthKey)
	delete(sess.Values, userIDKey)
	opts := *m.store.Options
	opts.MaxAge = -1
	sess.Options = &opts
	if err := sess.Save(r, w); err != nil {
		return true, err
	}
	return true, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadSessionUser verifies the session on every request and, when it names
// an existing identity, injects that Identity into the request context.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := m.verify(r); ok {
			r = WithIdentity(r, id)
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionManager) verify(r *http.Request) (Identity, bool) {
	if m.users == nil {
		return Identity{}, false
	}
	sess, err := m.GetSession(r)
	if err != nil {
		return Identity{}, false
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return Identity{}, false
	}
	hex, _ := sess.Values[userIDKey].(string)
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return Identity{}, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	u, err := m.users.GetByID(ctx, oid)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			m.log.Error("session user lookup failed", zap.Error(err), zap.String("user_id", hex))
		}
		return Identity{}, false
	}
	return IdentityFor(*u), true
}

// RequireSignedIn short-circuits requests without an identity:
//   - HTMX: HX-Redirect to /login?return=...
//   - HTML: 303 to /login?return=...
//   - API:  401 JSON
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		unauthenticated(w, r)
	})
}

// RequireRole is RequireSignedIn plus a role check. Signed-in callers with
// another role get an explicit denial: /forbidden for browsers, 403 JSON
// for API callers.
func (m *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := CurrentIdentity(r)
			if !ok {
				unauthenticated(w, r)
				return
			}
			if _, has := set[id.Role()]; !has {
				if respond.WantsHTML(r) {
					respond.Redirect(w, r, "/forbidden")
					return
				}
				respond.Error(w, http.StatusForbidden, errs.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	dest := "/login?return=" + url.QueryEscape(r.URL.RequestURI())
	switch {
	case r.Header.Get("HX-Request") == "true":
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(http.StatusUnauthorized)
	case respond.WantsHTML(r):
		http.Redirect(w, r, dest, http.StatusSeeOther)
	default:
		respond.Error(w, http.StatusUnauthorized, errs.ErrUnauthenticated.Error())
	}
}
