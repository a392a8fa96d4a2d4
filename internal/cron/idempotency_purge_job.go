package cron

import (
	"context"
	"fmt"

	"github.com/sabrositas/pos-backend/pkg/logger"
)

type idempotencyPurger interface {
	PurgeExpiredIdempotencyKeys(ctx context.Context) (int64, error)
}

// IdempotencyPurgeJobParams configure the expired-key cleanup.
type IdempotencyPurgeJobParams struct {
	Logger *logger.Logger
	Purger idempotencyPurger
}

type idempotencyPurgeJob struct {
	logg   *logger.Logger
	purger idempotencyPurger
}

// NewIdempotencyPurgeJob constructs the cleanup of expired idempotency keys.
func NewIdempotencyPurgeJob(params IdempotencyPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Purger == nil {
		return nil, fmt.Errorf("purger required")
	}
	return &idempotencyPurgeJob{logg: params.Logger, purger: params.Purger}, nil
}

func (j *idempotencyPurgeJob) Name() string { return "idempotency-purge" }

func (j *idempotencyPurgeJob) Run(ctx context.Context) error {
	purged, err := j.purger.PurgeExpiredIdempotencyKeys(ctx)
	if err != nil {
		return fmt.Errorf("purge idempotency keys: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "purged", purged), "idempotency purge finished")
	return nil
}
