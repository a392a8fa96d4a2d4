package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sabrositas/pos-backend/internal/reconcile"
	"github.com/sabrositas/pos-backend/pkg/logger"
)

// SystemActorID is recorded on movements written by scheduled jobs, where
// no human cashier is behind the change.
var SystemActorID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// ReconcileJobParams configure the scheduled stock reconciliation.
type ReconcileJobParams struct {
	Logger     *logger.Logger
	Reconciler reconcile.Service
	Correct    bool
}

type reconcileJob struct {
	logg       *logger.Logger
	reconciler reconcile.Service
	correct    bool
}

// NewReconcileJob constructs the nightly ledger-versus-journal sweep.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reconciler == nil {
		return nil, fmt.Errorf("reconciler service required")
	}
	return &reconcileJob{
		logg:       params.Logger,
		reconciler: params.Reconciler,
		correct:    params.Correct,
	}, nil
}

func (j *reconcileJob) Name() string { return "stock-reconcile" }

func (j *reconcileJob) Run(ctx context.Context) error {
	report, err := j.reconciler.Reconcile(ctx, nil, j.correct, SystemActorID)
	if report != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"products_checked": report.ProductsChecked,
			"anomalies":        len(report.Anomalies),
			"corrections":      report.Corrections,
		})
		j.logg.Info(logCtx, "reconcile sweep finished")
	}
	if err != nil {
		return fmt.Errorf("reconcile sweep: %w", err)
	}
	return nil
}
