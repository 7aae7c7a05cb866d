package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/weblivery/internal/domain/errs"
	"github.com/dalemusser/weblivery/internal/domain/models"
	"go.uber.org/zap"
)

// resolveClaim settles a request left claimed by an unfinished accept. When
// a project for the request exists the accept is rolled forward (the
// request is deleted) and that project is returned; otherwise the claim is
// released so the request is pending again.
func (e *Engine) resolveClaim(ctx context.Context, req models.ServiceRequest) (models.Project, bool, error) {
	p, err := e.projects.GetBySourceRequest(ctx, req.ID)
	switch {
	case err == nil:
		if err := e.consumeAfterProject(ctx, req); err != nil {
			return models.Project{}, true, err
		}
		return p, true, nil
	case errors.Is(err, errs.ErrNotFound):
		if _, err := e.requests.Release(ctx, req.ID, req.ClaimID); err != nil {
			return models.Project{}, false, err
		}
		return models.Project{}, false, nil
	default:
		return models.Project{}, false, err
	}
}

// consumeAfterProject deletes the request behind an existing project. The
// claim may have been released in the meantime (a reconciler pass judged
// it stale), in which case the now unclaimed request is deleted directly.
// A request claimed under another id belongs to a different accept and is
// left alone.
func (e *Engine) consumeAfterProject(ctx context.Context, req models.ServiceRequest) error {
	ok, err := e.requests.DeleteClaimed(ctx, req.ID, req.ClaimID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	cur, err := e.requests.GetByID(ctx, req.ID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		e.log.Warn("request already consumed before roll-forward",
			zap.String("request_id", req.ID.Hex()),
			zap.String("claim_id", req.ClaimID))
		return nil
	case err != nil:
		return err
	case cur.Claimed():
		return fmt.Errorf("%w: request %s now claimed as %s", errClaimLost, req.ID.Hex(), cur.ClaimID)
	}

	ok, err = e.requests.Delete(ctx, req.ID)
	if err != nil {
		return err
	}
	if !ok {
		// Claimed again between the read and the delete.
		return errClaimLost
	}
	e.log.Warn("claim was released under a running accept; request consumed without it",
		zap.String("request_id", req.ID.Hex()),
		zap.String("claim_id", req.ClaimID))
	return nil
}

// ReconcileResult counts what one reconciliation pass did.
type ReconcileResult struct {
	RolledForward int
	RolledBack    int
	Failed        int
}

// ReconcileStaleClaims resolves every claim older than staleAfter. It keeps
// going past individual failures and returns the first one.
func (e *Engine) ReconcileStaleClaims(ctx context.Context, staleAfter time.Duration) (ReconcileResult, error) {
	var res ReconcileResult
	stale, err := e.requests.ListStaleClaims(ctx, e.now().Add(-staleAfter))
	if err != nil {
		return res, err
	}

	var firstErr error
	for _, req := range stale {
		_, forward, err := e.resolveClaim(ctx, req)
		if err != nil {
			res.Failed++
			if firstErr == nil {
				firstErr = err
			}
			e.log.Error("stale claim reconciliation failed",
				zap.String("request_id", req.ID.Hex()),
				zap.String("claim_id", req.ClaimID),
				zap.Error(err))
			continue
		}
		if forward {
			res.RolledForward++
			e.metrics.Reconciled("rolled_forward")
		} else {
			res.RolledBack++
			e.metrics.Reconciled("rolled_back")
		}
		e.audit.ClaimReconciled(ctx, req.ID, forward)
		e.log.Warn("stale claim reconciled",
			zap.String("request_id", req.ID.Hex()),
			zap.String("claim_id", req.ClaimID),
			zap.Bool("rolled_forward", forward))
	}
	return res, firstErr
}
