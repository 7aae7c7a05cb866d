// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
)

// Store backends selectable with store_backend.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (WEBLIVERY_*), configuration
// files, or command-line flags (loaded in LoadConfig). Framework settings
// such as ports, TLS, log level and CORS live in WAFFLE's CoreConfig.
type AppConfig struct {
	// Persistence
	StoreBackend      string // "mongo" or "memory"
	MongoURI          string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase     string // Database name within MongoDB
	MongoTransactions bool   // run accept inside a multi-document transaction (replica set only)

	// Session management
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime; 0 keeps the gorilla default

	// Seed administrator, created at startup when missing
	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminNickname string

	// Audit logging: "all", "db", "log" or "off" per category
	AuditLogAuth     string
	AuditLogAdmin    string
	AuditLogWorkflow string

	// Abuse protection
	SubmitRatePerMinute int  // public form submissions per client IP
	LoginRatePerMinute  int  // sign-in attempts per client IP
	TrustProxyHeaders   bool // client IP from proxy headers (behind a trusted proxy only)

	// Store call deadlines (see system/timeouts)
	Timeouts timeouts.Config

	// Claim reconciliation for accepts interrupted mid-way
	ClaimStaleAfter        time.Duration
	ClaimReconcileInterval time.Duration
}
