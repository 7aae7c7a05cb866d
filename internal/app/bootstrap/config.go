// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/weblivery/internal/app/system/auditlog"
	"github.com/dalemusser/weblivery/internal/app/system/credentials"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const (
	defaultSessionKey    = "dev-only-change-me-please-0123456789ABCDEF"
	defaultAdminPassword = "change-me-admin"
)

// appConfigKeys defines the configuration keys for Weblivery.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: WEBLIVERY_MONGO_URI, WEBLIVERY_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Persistence backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "weblivery", Desc: "MongoDB database name"},
	{Name: "mongo_transactions", Default: false, Desc: "Run accept in a multi-document transaction (requires a replica set)"},

	{Name: "session_key", Default: defaultSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "weblivery-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Session cookie lifetime (e.g., 24h, 168h)"},

	// Seed administrator
	{Name: "admin_email", Default: "admin@weblivery.local", Desc: "Email of the administrator created at startup"},
	{Name: "admin_password", Default: defaultAdminPassword, Desc: "Password of the administrator created at startup"},
	{Name: "admin_name", Default: "Administrator", Desc: "Display name of the seed administrator"},
	{Name: "admin_nickname", Default: "admin", Desc: "Nickname of the seed administrator"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: auditlog.All, Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: auditlog.All, Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_workflow", Default: auditlog.All, Desc: "Request lifecycle event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Rate limits
	{Name: "submit_rate_per_minute", Default: 5, Desc: "Public form submissions allowed per client IP per minute"},
	{Name: "login_rate_per_minute", Default: 20, Desc: "Sign-in attempts allowed per client IP per minute"},
	{Name: "trust_proxy_headers", Default: false, Desc: "Take the client IP from X-Forwarded-For/X-Real-IP (enable only behind a trusted reverse proxy)"},

	// Store call deadlines
	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health check pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document reads and writes"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list queries and inserts"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for the accept transition"},

	// Claim reconciliation
	{Name: "claim_stale_after", Default: "5m", Desc: "Age after which an unfinished accept claim is reconciled"},
	{Name: "claim_reconcile_interval", Default: "1m", Desc: "How often the claim reconciler runs"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, WEBLIVERY_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "WEBLIVERY", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:      appValues.String("store_backend"),
		MongoURI:          appValues.String("mongo_uri"),
		MongoDatabase:     appValues.String("mongo_database"),
		MongoTransactions: appValues.Bool("mongo_transactions"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 7*24*time.Hour),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
		AdminName:     appValues.String("admin_name"),
		AdminNickname: appValues.String("admin_nickname"),

		AuditLogAuth:     appValues.String("audit_log_auth"),
		AuditLogAdmin:    appValues.String("audit_log_admin"),
		AuditLogWorkflow: appValues.String("audit_log_workflow"),

		SubmitRatePerMinute: appValues.Int("submit_rate_per_minute"),
		LoginRatePerMinute:  appValues.Int("login_rate_per_minute"),
		TrustProxyHeaders:   appValues.Bool("trust_proxy_headers"),

		Timeouts: timeouts.Config{
			Ping:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
			Short:  appValues.Duration("timeout_short", timeouts.DefaultShort),
			Medium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
			Long:   appValues.Duration("timeout_long", timeouts.DefaultLong),
		},

		ClaimStaleAfter:        appValues.Duration("claim_stale_after", 5*time.Minute),
		ClaimReconcileInterval: appValues.Duration("claim_reconcile_interval", time.Minute),
	}

	// ConnectDB already pings under these deadlines, so apply them here.
	timeouts.Configure(appCfg.Timeouts)

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// Production refuses to start with the shipped session key or admin
// password.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if appCfg.MongoDatabase == "" {
			return errors.New("mongo_database must not be empty")
		}
	case BackendMemory:
		if coreCfg != nil && coreCfg.Env == "prod" {
			logger.Warn("memory store backend in prod: data is lost on restart")
		}
	default:
		return fmt.Errorf("store_backend must be %q or %q, got %q", BackendMongo, BackendMemory, appCfg.StoreBackend)
	}

	for key, v := range map[string]string{
		"audit_log_auth":     appCfg.AuditLogAuth,
		"audit_log_admin":    appCfg.AuditLogAdmin,
		"audit_log_workflow": appCfg.AuditLogWorkflow,
	} {
		switch v {
		case auditlog.All, auditlog.DB, auditlog.Log, auditlog.Off:
		default:
			return fmt.Errorf("%s must be one of all, db, log, off; got %q", key, v)
		}
	}

	if appCfg.AdminEmail != "" && len(appCfg.AdminPassword) < credentials.MinPasswordLen {
		return fmt.Errorf("admin_password must be at least %d characters", credentials.MinPasswordLen)
	}
	if appCfg.SubmitRatePerMinute < 1 || appCfg.LoginRatePerMinute < 1 {
		return errors.New("submit_rate_per_minute and login_rate_per_minute must be positive")
	}
	if appCfg.ClaimStaleAfter <= 0 || appCfg.ClaimReconcileInterval <= 0 {
		return errors.New("claim_stale_after and claim_reconcile_interval must be positive")
	}
	// An accept still inside its deadline (plus compensation) must never
	// look stale to the reconciler.
	if budget := acceptBudget(appCfg.Timeouts); appCfg.ClaimStaleAfter <= budget {
		return fmt.Errorf("claim_stale_after (%s) must exceed timeout_long plus timeout_short (%s)", appCfg.ClaimStaleAfter, budget)
	}

	if coreCfg != nil && coreCfg.Env == "prod" {
		if appCfg.SessionKey == defaultSessionKey || len(appCfg.SessionKey) < 32 {
			return errors.New("session_key must be set to a random value of at least 32 characters in prod")
		}
		if appCfg.AdminEmail != "" && appCfg.AdminPassword == defaultAdminPassword {
			return errors.New("admin_password must be changed from the default in prod")
		}
	}

	return nil
}

// acceptBudget is the longest an accept can hold its claim: the accept
// deadline followed by the compensation deadline. Unset values fall back to
// the package defaults, as timeouts.Configure does.
func acceptBudget(cfg timeouts.Config) time.Duration {
	long, short := cfg.Long, cfg.Short
	if long <= 0 {
		long = timeouts.DefaultLong
	}
	if short <= 0 {
		short = timeouts.DefaultShort
	}
	return long + short
}
