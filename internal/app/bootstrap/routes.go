// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	"github.com/dalemusser/waffle/config"
	auditlogfeature "github.com/dalemusser/weblivery/internal/app/features/auditlog"
	dashboardfeature "github.com/dalemusser/weblivery/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/weblivery/internal/app/features/errors"
	healthfeature "github.com/dalemusser/weblivery/internal/app/features/health"
	homefeature "github.com/dalemusser/weblivery/internal/app/features/home"
	loginfeature "github.com/dalemusser/weblivery/internal/app/features/login"
	logoutfeature "github.com/dalemusser/weblivery/internal/app/features/logout"
	servicerequestsfeature "github.com/dalemusser/weblivery/internal/app/features/servicerequests"
	systemusersfeature "github.com/dalemusser/weblivery/internal/app/features/systemusers"
	"github.com/dalemusser/weblivery/internal/app/system/metrics"
	"github.com/dalemusser/weblivery/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the session manager, audit logger and
// workflow engine built there are available through deps.
//
// Weblivery mounts the public request form at "/", sign-in and sign-out,
// the role-scoped dashboard, and the admin areas for pending requests,
// identities and the audit trail.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.services
	if svc == nil || svc.engine == nil || svc.sessions == nil {
		return nil, errors.New("bootstrap: BuildHandler called before Startup")
	}
	sessionMgr := svc.sessions

	errorsHandler := errorsfeature.NewHandler()

	r := chi.NewRouter()
	if appCfg.TrustProxyHeaders {
		// Rewrites RemoteAddr from X-Forwarded-For/X-Real-IP; the rate
		// limiters key on RemoteAddr only.
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(svc.httpMetrics.Instrument)

	// Global auth middleware: loads the Identity into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators.
	var pinger healthfeature.Pinger
	if deps.MongoClient != nil {
		pinger = healthfeature.MongoPinger{Client: deps.MongoClient}
	}
	healthHandler := healthfeature.NewHandler(pinger, deps.Backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Registry))

	// Public request form
	homeHandler := homefeature.NewHandler(svc.engine, logger)
	r.Mount("/", homefeature.Routes(homeHandler, ratelimit.PerMinute(appCfg.SubmitRatePerMinute)))

	// Authentication
	loginHandler := loginfeature.NewHandler(deps.Stores.Users, sessionMgr, svc.audit,
		ratelimit.NewLoginLimiter(appCfg.LoginRatePerMinute), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, svc.audit, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	// Error pages
	r.Get("/forbidden", errorsHandler.Forbidden)

	// Role-scoped project dashboard
	dashboardHandler := dashboardfeature.NewHandler(svc.engine, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	// Administration
	requestsHandler := servicerequestsfeature.NewHandler(svc.engine, logger)
	r.Mount("/admin/requests", servicerequestsfeature.Routes(requestsHandler, sessionMgr))

	sysUsersHandler := systemusersfeature.NewHandler(svc.engine, logger)
	r.Mount("/admin/users", systemusersfeature.Routes(sysUsersHandler, sessionMgr))
	r.Mount("/admin/register", systemusersfeature.RegisterRoutes(sysUsersHandler, sessionMgr))

	auditHandler := auditlogfeature.NewHandler(deps.Stores.Audit, deps.Stores.Users, logger)
	r.Mount("/admin/audit", auditlogfeature.Routes(auditHandler, sessionMgr))

	return r, nil
}
