// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	"github.com/dalemusser/weblivery/internal/app/store/audit"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// EventQuerier reads audit events. Both audit backends satisfy it.
type EventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// NameLookup resolves identity ids to display names.
type NameLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type Handler struct {
	Events EventQuerier
	Users  NameLookup
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler.
func NewHandler(events EventQuerier, users NameLookup, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Users:  users,
		Log:    logger,
	}
}
