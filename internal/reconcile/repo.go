package reconcile

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/pkg/db/models"
)

// Repository reads the product side of a reconciliation pass.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListProductIDs(ctx context.Context) ([]uuid.UUID, error)
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)
	PurgeExpiredIdempotencyKeys(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// ListProductIDs returns every product, inactive ones included, in
// ascending id order. Deactivated products still carry stock that has to
// agree with their journal.
func (r *repository) ListProductIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) ProductExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeExpiredIdempotencyKeys removes idempotency records past their
// expiry. The scheduled worker calls this after each sweep.
func (r *repository) PurgeExpiredIdempotencyKeys(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < CURRENT_TIMESTAMP").
		Delete(&models.IdempotencyKey{})
	return result.RowsAffected, result.Error
}
