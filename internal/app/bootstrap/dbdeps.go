// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/weblivery/internal/app/store/audit"
	"github.com/dalemusser/weblivery/internal/app/store/memory"
	"github.com/dalemusser/weblivery/internal/app/system/auditlog"
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/metrics"
	"github.com/dalemusser/weblivery/internal/app/system/txn"
	"github.com/dalemusser/weblivery/internal/app/system/workers"
	"github.com/dalemusser/weblivery/internal/app/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditStore persists and queries audit events.
type AuditStore interface {
	auditlog.Sink
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// Stores are the persistence views every feature is built on. The mongo
// and memory backends fill them with their own implementations.
type Stores struct {
	Users    workflow.IdentityStore
	Requests workflow.RequestStore
	Projects workflow.ProjectStore
	Audit    AuditStore
}

// DBDeps holds database/back-end dependencies for the app.
//
// Exactly one of MongoClient or Memory is set, matching Backend.
type DBDeps struct {
	Backend       string
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Memory        *memory.DB

	Stores   Stores
	Tx       txn.Transactor
	Registry *prometheus.Registry

	// services is allocated by ConnectDB and filled by Startup. WAFFLE hands
	// DBDeps to each hook by value, so the shared pointer carries what
	// Startup builds into BuildHandler and Shutdown.
	services *services
}

type services struct {
	sessions    *auth.SessionManager
	audit       *auditlog.Logger
	engine      *workflow.Engine
	httpMetrics *metrics.HTTP
	reconciler  *workers.ClaimReconciler
}
