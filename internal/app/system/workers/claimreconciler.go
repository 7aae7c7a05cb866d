// internal/app/system/workers/claimreconciler.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/weblivery/internal/app/workflow"
	"go.uber.org/zap"
)

// Reconciler resolves request claims left behind by interrupted accepts.
type Reconciler interface {
	ReconcileStaleClaims(ctx context.Context, staleAfter time.Duration) (workflow.ReconcileResult, error)
}

// ClaimReconciler is a background worker that periodically rolls stale
// claims forward (project exists) or back (claim released).
type ClaimReconciler struct {
	engine     Reconciler
	log        *zap.Logger
	interval   time.Duration
	staleAfter time.Duration
	timeout    time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewClaimReconciler creates a new claim reconciler.
//
// Parameters:
//   - engine: the workflow engine
//   - logger: zap logger for logging
//   - interval: how often to scan (e.g., 1 minute)
//   - staleAfter: how old a claim must be before it is resolved (e.g., 5 minutes)
func NewClaimReconciler(engine Reconciler, logger *zap.Logger, interval, staleAfter time.Duration) *ClaimReconciler {
	return &ClaimReconciler{
		engine:     engine,
		log:        logger,
		interval:   interval,
		staleAfter: staleAfter,
		timeout:    30 * time.Second,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the background loop. A first pass runs immediately so claims
// orphaned by a previous process are resolved at boot.
func (w *ClaimReconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("claim reconciler started",
		zap.Duration("interval", w.interval),
		zap.Duration("stale_after", w.staleAfter))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once.
func (w *ClaimReconciler) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("claim reconciler stopped")
	})
}

func (w *ClaimReconciler) run() {
	defer w.wg.Done()

	w.RunOnce()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single reconciliation pass.
func (w *ClaimReconciler) RunOnce() workflow.ReconcileResult {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	res, err := w.engine.ReconcileStaleClaims(ctx, w.staleAfter)
	if err != nil {
		w.log.Error("failed to reconcile stale claims", zap.Error(err))
		return res
	}

	if res.RolledForward > 0 || res.RolledBack > 0 || res.Failed > 0 {
		w.log.Info("reconciled stale claims",
			zap.Int("rolled_forward", res.RolledForward),
			zap.Int("rolled_back", res.RolledBack),
			zap.Int("failed", res.Failed))
	}
	return res
}
