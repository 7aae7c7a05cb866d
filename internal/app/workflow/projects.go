package workflow

import (
	"context"

	"github.com/dalemusser/weblivery/internal/app/policy/projectpolicy"
	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListVisibleProjects returns the projects actor may see, recomputed from
// the store on every call.
func (e *Engine) ListVisibleProjects(ctx context.Context, actor auth.Identity) ([]models.Project, error) {
	if err := requireSignedIn(actor); err != nil {
		return nil, err
	}
	all, err := e.projects.List(ctx)
	if err != nil {
		return nil, err
	}
	return projectpolicy.VisibleProjects(actor, all), nil
}

// GetProject loads one project if actor may see it. A project outside the
// actor's visibility returns errs.ErrForbidden.
func (e *Engine) GetProject(ctx context.Context, actor auth.Identity, id primitive.ObjectID) (models.Project, error) {
	if err := requireSignedIn(actor); err != nil {
		return models.Project{}, err
	}
	p, err := e.projects.GetByID(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if !projectpolicy.CanView(actor, p) {
		return models.Project{}, errs.ErrForbidden
	}
	return p, nil
}
