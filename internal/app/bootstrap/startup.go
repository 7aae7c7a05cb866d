// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/weblivery/internal/app/system/auditlog"
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/metrics"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"github.com/dalemusser/weblivery/internal/app/system/workers"
	"github.com/dalemusser/weblivery/internal/app/workflow"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the session manager, audit logger and workflow engine, seeds the
// administrator, and starts the claim reconciler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.services == nil {
		return errors.New("bootstrap: DBDeps not built by ConnectDB")
	}
	svc := deps.services

	// Secure cookies are enabled in production mode.
	secure := coreCfg != nil && coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return err
	}
	// LoadSessionUser re-fetches the identity on each request so role
	// changes take effect immediately.
	sessionMgr.SetUserFetcher(deps.Stores.Users)
	svc.sessions = sessionMgr

	svc.audit = auditlog.New(deps.Stores.Audit, logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Admin:    appCfg.AuditLogAdmin,
		Workflow: appCfg.AuditLogWorkflow,
	})

	svc.httpMetrics = metrics.NewHTTP(deps.Registry)
	svc.engine = workflow.New(workflow.Deps{
		Requests:   deps.Stores.Requests,
		Projects:   deps.Stores.Projects,
		Identities: deps.Stores.Users,
		Tx:         deps.Tx,
		Audit:      svc.audit,
		Metrics:    metrics.NewWorkflow(deps.Registry),
		Log:        logger,
	})

	if appCfg.AdminEmail != "" {
		seedCtx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), logger, "seed admin")
		created, err := svc.engine.EnsureAdmin(seedCtx, workflow.AdminSeed{
			Email:    appCfg.AdminEmail,
			Password: appCfg.AdminPassword,
			Name:     appCfg.AdminName,
			Nickname: appCfg.AdminNickname,
		})
		cancel()
		if err != nil {
			logger.Error("admin seed failed", zap.Error(err), zap.String("email", appCfg.AdminEmail))
			return err
		}
		if created {
			logger.Info("seed administrator created", zap.String("email", appCfg.AdminEmail))
		}
	}

	svc.reconciler = workers.NewClaimReconciler(svc.engine, logger, appCfg.ClaimReconcileInterval, appCfg.ClaimStaleAfter)
	svc.reconciler.Start()

	return nil
}
