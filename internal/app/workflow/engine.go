// Package workflow implements the service request lifecycle: public
// submission, administrator accept and decline, and the identity and
// project operations around them.
//
// Every mutating operation takes the caller's auth.Identity and checks its
// role before touching a store. Store failures are returned to the caller,
// never swallowed.
package workflow

import (
	"context"
	"time"

	"github.com/dalemusser/weblivery/internal/app/system/auditlog"
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/metrics"
	"github.com/dalemusser/weblivery/internal/app/system/txn"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RequestStore is the subset of the request store the engine needs.
type RequestStore interface {
	Create(ctx context.Context, r models.ServiceRequest) (models.ServiceRequest, error)
	ListPending(ctx context.Context) ([]models.ServiceRequest, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.ServiceRequest, error)
	Claim(ctx context.Context, id primitive.ObjectID, claimID string, at time.Time) (models.ServiceRequest, error)
	Release(ctx context.Context, id primitive.ObjectID, claimID string) (bool, error)
	DeleteClaimed(ctx context.Context, id primitive.ObjectID, claimID string) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	ListStaleClaims(ctx context.Context, before time.Time) ([]models.ServiceRequest, error)
}

// ProjectStore is the subset of the project store the engine needs.
type ProjectStore interface {
	Create(ctx context.Context, p models.Project) (models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Project, error)
	GetBySourceRequest(ctx context.Context, requestID primitive.ObjectID) (models.Project, error)
}

// IdentityStore is the subset of the identity store the engine needs.
type IdentityStore interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string) error
}

// Deps wires an Engine. Requests, Projects and Identities are required; the
// rest default to no-op or pass-through implementations.
type Deps struct {
	Requests   RequestStore
	Projects   ProjectStore
	Identities IdentityStore
	Tx         txn.Transactor
	Audit      *auditlog.Logger
	Metrics    *metrics.Workflow
	Log        *zap.Logger
	Now        func() time.Time
	NewClaimID func() string
}

// Engine runs lifecycle transitions.
type Engine struct {
	requests   RequestStore
	projects   ProjectStore
	identities IdentityStore
	tx         txn.Transactor
	audit      *auditlog.Logger
	metrics    *metrics.Workflow
	log        *zap.Logger
	now        func() time.Time
	newClaimID func() string
}

// New builds an Engine from d.
func New(d Deps) *Engine {
	e := &Engine{
		requests:   d.Requests,
		projects:   d.Projects,
		identities: d.Identities,
		tx:         d.Tx,
		audit:      d.Audit,
		metrics:    d.Metrics,
		log:        d.Log,
		now:        d.Now,
		newClaimID: d.NewClaimID,
	}
	if e.tx == nil {
		e.tx = txn.None{}
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.newClaimID == nil {
		e.newClaimID = uuid.NewString
	}
	return e
}

func requireAdmin(id auth.Identity) error {
	if id.IsZero() {
		return errs.ErrUnauthenticated
	}
	if !id.IsAdmin() {
		return errs.ErrForbidden
	}
	return nil
}

func requireSignedIn(id auth.Identity) error {
	if id.IsZero() {
		return errs.ErrUnauthenticated
	}
	return nil
}
