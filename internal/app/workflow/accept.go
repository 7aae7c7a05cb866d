package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/htmlsanitize"
	"github.com/dalemusser/weblivery/internal/app/system/inputval"
	"github.com/dalemusser/weblivery/internal/app/system/normalize"
	"github.com/dalemusser/weblivery/internal/app/system/timeouts"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxResolvers bounds concurrent developer lookups within one accept.
const maxResolvers = 8

// errClaimLost means the claim vanished between Claim and DeleteClaimed.
var errClaimLost = errors.New("request claim lost during accept")

// AcceptInput carries the administrator's accept form. Blank client and
// project fields default to the values of the request being accepted.
type AcceptInput struct {
	RequestID          primitive.ObjectID   `json:"request_id"`
	ClientName         string               `json:"client_name"`
	ClientEmail        string               `json:"client_email"`
	ClientPhone        string               `json:"client_phone"`
	ProjectName        string               `json:"project_name"`
	ProjectDescription string               `json:"project_description"`
	Deadline           *time.Time           `json:"deadline,omitempty"`
	DeveloperIDs       []primitive.ObjectID `json:"developer_ids"`
}

func (in AcceptInput) clean() AcceptInput {
	in.ClientName = normalize.Name(htmlsanitize.PlainText(in.ClientName))
	in.ClientEmail = normalize.Email(in.ClientEmail)
	in.ClientPhone = normalize.Phone(in.ClientPhone)
	in.ProjectName = normalize.Name(htmlsanitize.PlainText(in.ProjectName))
	in.ProjectDescription = htmlsanitize.PlainText(in.ProjectDescription)
	return in
}

func (in AcceptInput) validate() error {
	v := errs.NewValidationError()
	if in.RequestID.IsZero() {
		v.Add("request_id", "is required")
	}
	if !inputval.MaxLen(in.ClientName, MaxNameLen) {
		v.Add("client_name", "is too long")
	}
	if in.ClientEmail != "" && !inputval.IsValidEmail(in.ClientEmail) {
		v.Add("client_email", "is not a valid email address")
	}
	if in.ClientPhone != "" && !inputval.IsValidPhone(in.ClientPhone) {
		v.Add("client_phone", "is not a valid phone number")
	}
	if !inputval.MaxLen(in.ProjectName, MaxTitleLen) {
		v.Add("project_name", "is too long")
	}
	if !inputval.MaxLen(in.ProjectDescription, MaxDescriptionLen) {
		v.Add("project_description", "is too long")
	}
	for _, id := range in.DeveloperIDs {
		if id.IsZero() {
			v.Add("developer_ids", "contains an empty id")
			break
		}
	}
	return v.OrNil()
}

// Accept converts a pending request into a Project.
//
// The request is claimed with a single-document update, which hides it
// from the pending list and makes concurrent accepts on one id yield
// exactly one success. The project is then created and the claimed request
// deleted, all inside the configured transaction boundary. If that unit
// fails, the claim is resolved at once: rolled forward when the project
// exists, released otherwise. A claim that cannot be resolved is left for
// the background reconciler and logged.
func (e *Engine) Accept(ctx context.Context, actor auth.Identity, in AcceptInput) (p models.Project, err error) {
	defer func() { e.metrics.Transition("accept", outcome(err)) }()

	if err := requireAdmin(actor); err != nil {
		return models.Project{}, err
	}
	in = in.clean()
	if err := in.validate(); err != nil {
		return models.Project{}, err
	}

	// Cheap exit before developer lookups; Claim below is authoritative.
	pre, err := e.requests.GetByID(ctx, in.RequestID)
	if err != nil {
		return models.Project{}, err
	}
	if pre.Claimed() {
		return models.Project{}, errs.ErrNotFound
	}

	devs, err := e.resolveDevelopers(ctx, in.DeveloperIDs)
	if err != nil {
		return models.Project{}, err
	}

	claimID := e.newClaimID()
	var claimed models.ServiceRequest
	var created models.Project
	err = e.tx.Run(ctx, func(ctx context.Context) error {
		req, err := e.requests.Claim(ctx, in.RequestID, claimID, e.now())
		if err != nil {
			return err
		}
		claimed = req

		proj, err := e.projects.Create(ctx, buildProject(actor, req, in, devs, e.now()))
		if err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		ok, err := e.requests.DeleteClaimed(ctx, req.ID, claimID)
		if err != nil {
			return fmt.Errorf("consume request: %w", err)
		}
		if !ok {
			return errClaimLost
		}
		created = proj
		return nil
	})
	if err == nil {
		e.audit.RequestAccepted(ctx, actor.ID(), claimed, created)
		e.log.Info("service request accepted",
			zap.String("request_id", in.RequestID.Hex()),
			zap.String("project_id", created.ID.Hex()),
			zap.Int("developers", len(created.Developers)),
			zap.String("actor", actor.Email()))
		return created, nil
	}

	// Losing the claim race (or the request vanishing) is a plain NotFound
	// with nothing to undo.
	if claimed.ID.IsZero() {
		if errors.Is(err, errs.ErrNotFound) {
			return models.Project{}, errs.ErrNotFound
		}
		return models.Project{}, err
	}

	claimed.ClaimID = claimID
	return e.compensate(ctx, actor, claimed, err)
}

// compensate resolves the claim of a failed accept. The caller's context
// may already be done, so the cleanup runs on a detached one.
func (e *Engine) compensate(ctx context.Context, actor auth.Identity, claimed models.ServiceRequest, cause error) (models.Project, error) {
	cctx, cancel := timeouts.WithTimeout(context.WithoutCancel(ctx), timeouts.Short(), e.log, "accept compensation")
	defer cancel()

	proj, forward, rerr := e.resolveClaim(cctx, claimed)
	switch {
	case rerr != nil:
		e.metrics.Compensation("left_for_reconciler")
		e.log.Error("accept failed and claim could not be resolved; left for reconciler",
			zap.String("request_id", claimed.ID.Hex()),
			zap.String("claim_id", claimed.ClaimID),
			zap.NamedError("cause", cause),
			zap.Error(rerr))
		e.audit.AcceptCompensated(cctx, actor.ID(), claimed.ID, false, cause)
		return models.Project{}, fmt.Errorf("accept request %s: %w", claimed.ID.Hex(), cause)

	case forward:
		// The project is durable; finishing the consumption makes the
		// accept a success.
		e.metrics.Compensation("rolled_forward")
		e.log.Warn("accept completed by roll-forward after error",
			zap.String("request_id", claimed.ID.Hex()),
			zap.String("project_id", proj.ID.Hex()),
			zap.NamedError("cause", cause))
		e.audit.RequestAccepted(cctx, actor.ID(), claimed, proj)
		return proj, nil

	default:
		e.metrics.Compensation("released")
		e.log.Error("accept failed; claim released, request is pending again",
			zap.String("request_id", claimed.ID.Hex()),
			zap.NamedError("cause", cause))
		e.audit.AcceptCompensated(cctx, actor.ID(), claimed.ID, true, cause)
		return models.Project{}, fmt.Errorf("accept request %s: %w", claimed.ID.Hex(), cause)
	}
}

// resolveDevelopers loads every id concurrently and returns snapshots in
// first-seen order with duplicates removed. Any id that does not resolve
// fails the whole call with errs.ErrNotFound naming it.
func (e *Engine) resolveDevelopers(ctx context.Context, ids []primitive.ObjectID) ([]models.DeveloperSnapshot, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	uniq := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	out := make([]models.DeveloperSnapshot, len(uniq))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxResolvers)
	for i, id := range uniq {
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(gctx, timeouts.Short())
			defer cancel()
			u, err := e.identities.GetByID(lctx, id)
			if err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return fmt.Errorf("developer %s: %w", id.Hex(), errs.ErrNotFound)
				}
				return fmt.Errorf("resolve developer %s: %w", id.Hex(), err)
			}
			out[i] = u.Snapshot()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func buildProject(actor auth.Identity, req models.ServiceRequest, in AcceptInput, devs []models.DeveloperSnapshot, now time.Time) models.Project {
	p := models.Project{
		ID:                 primitive.NewObjectID(),
		ClientName:         firstNonEmpty(in.ClientName, req.RequesterFullName),
		ClientEmail:        firstNonEmpty(in.ClientEmail, req.Email),
		ClientPhone:        firstNonEmpty(in.ClientPhone, req.Phone, req.WhatsApp),
		ProjectName:        firstNonEmpty(in.ProjectName, req.Title),
		ProjectDescription: firstNonEmpty(in.ProjectDescription, req.Description),
		Owner:              displayName(actor),
		Status:             models.StatusPlanning,
		ToDoList:           []models.ToDoItem{},
		Developers:         append([]models.DeveloperSnapshot{}, devs...),
		SourceRequestID:    req.ID,
		CreatedAt:          now,
	}
	if in.Deadline != nil {
		d := in.Deadline.UTC()
		p.Deadline = &d
	}
	return p
}

func displayName(id auth.Identity) string {
	return firstNonEmpty(id.Name(), id.Nickname(), id.Email())
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
