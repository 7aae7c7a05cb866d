package workflow

import (
	"context"
	"errors"

	"github.com/dalemusser/weblivery/internal/app/system/auth"
	"github.com/dalemusser/weblivery/internal/app/system/htmlsanitize"
	"github.com/dalemusser/weblivery/internal/app/system/inputval"
	"github.com/dalemusser/weblivery/internal/app/system/metrics"
	"github.com/dalemusser/weblivery/internal/app/system/normalize"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Field limits for the public form.
const (
	MaxNameLen        = 200
	MaxTitleLen       = 200
	MaxDescriptionLen = 5000
)

// SubmitInput is the public service form.
type SubmitInput struct {
	RequesterFullName string `json:"requester_full_name"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	WhatsApp          string `json:"whatsapp"`
}

// clean strips markup and normalises every field.
func (in SubmitInput) clean() SubmitInput {
	return SubmitInput{
		RequesterFullName: normalize.Name(htmlsanitize.PlainText(in.RequesterFullName)),
		Title:             normalize.Name(htmlsanitize.PlainText(in.Title)),
		Description:       htmlsanitize.PlainText(in.Description),
		Email:             normalize.Email(in.Email),
		Phone:             normalize.Phone(in.Phone),
		WhatsApp:          normalize.Phone(in.WhatsApp),
	}
}

func (in SubmitInput) validate() error {
	v := errs.NewValidationError()
	if in.RequesterFullName == "" {
		v.Add("requester_full_name", "is required")
	} else if !inputval.MaxLen(in.RequesterFullName, MaxNameLen) {
		v.Add("requester_full_name", "is too long")
	}
	if in.Title == "" {
		v.Add("title", "is required")
	} else if !inputval.MaxLen(in.Title, MaxTitleLen) {
		v.Add("title", "is too long")
	}
	if !inputval.MaxLen(in.Description, MaxDescriptionLen) {
		v.Add("description", "is too long")
	}
	if in.Email == "" {
		v.Add("email", "is required")
	} else if !inputval.IsValidEmail(in.Email) {
		v.Add("email", "is not a valid email address")
	}
	if in.Phone != "" && !inputval.IsValidPhone(in.Phone) {
		v.Add("phone", "is not a valid phone number")
	}
	if in.WhatsApp != "" && !inputval.IsValidPhone(in.WhatsApp) {
		v.Add("whatsapp", "is not a valid phone number")
	}
	return v.OrNil()
}

// Submit stores a new pending request from the public form. No identity is
// required. Invalid input is rejected before any store call.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (models.ServiceRequest, error) {
	in = in.clean()
	if err := in.validate(); err != nil {
		return models.ServiceRequest{}, err
	}

	r, err := e.requests.Create(ctx, models.ServiceRequest{
		RequesterFullName: in.RequesterFullName,
		Title:             in.Title,
		Description:       in.Description,
		Email:             in.Email,
		Phone:             in.Phone,
		WhatsApp:          in.WhatsApp,
		SubmittedAt:       e.now(),
	})
	if err != nil {
		return models.ServiceRequest{}, err
	}

	e.metrics.Submitted()
	e.audit.RequestSubmitted(ctx, r)
	e.log.Info("service request submitted",
		zap.String("request_id", r.ID.Hex()),
		zap.String("title", r.Title))
	return r, nil
}

// ListPending returns the requests awaiting a decision, oldest first.
func (e *Engine) ListPending(ctx context.Context, actor auth.Identity) ([]models.ServiceRequest, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return e.requests.ListPending(ctx)
}

// Decline discards a pending request. A request that does not exist or was
// already consumed returns errs.ErrNotFound; one an accept currently holds
// returns errs.ErrConflict, since a failed accept releases it again.
func (e *Engine) Decline(ctx context.Context, actor auth.Identity, requestID primitive.ObjectID) (err error) {
	defer func() { e.metrics.Transition("decline", outcome(err)) }()

	if err := requireAdmin(actor); err != nil {
		return err
	}
	if requestID.IsZero() {
		v := errs.NewValidationError()
		v.Add("id", "is required")
		return v
	}

	req, err := e.requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Claimed() {
		return errs.ErrConflict
	}
	deleted, err := e.requests.Delete(ctx, requestID)
	if err != nil {
		return err
	}
	if !deleted {
		// Claimed or removed since the read above.
		if cur, err := e.requests.GetByID(ctx, requestID); err == nil && cur.Claimed() {
			return errs.ErrConflict
		}
		return errs.ErrNotFound
	}

	e.audit.RequestDeclined(ctx, actor.ID(), req)
	e.log.Info("service request declined",
		zap.String("request_id", requestID.Hex()),
		zap.String("actor", actor.Email()))
	return nil
}

// outcome labels err for the transition counter.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, errs.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, errs.ErrForbidden), errors.Is(err, errs.ErrUnauthenticated):
		return metrics.OutcomeForbidden
	case errs.IsValidation(err):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
