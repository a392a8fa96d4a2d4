package refunds

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/pkg/db/models"
	"github.com/sabrositas/pos-backend/pkg/enums"
)

// Repository manages persistence for refund processing.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
	ListRefundsOf(ctx context.Context, originalID uuid.UUID) ([]models.Sale, error)
	CreateSale(ctx context.Context, sale *models.Sale) error
	UpdateStatus(ctx context.Context, saleID uuid.UUID, status enums.SaleStatus) error
	FindIdempotency(ctx context.Context, scope, key string) (*models.IdempotencyKey, error)
	DeleteExpiredIdempotency(ctx context.Context, scope, key string) error
	CreateIdempotency(ctx context.Context, record *models.IdempotencyKey) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a refunds repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) ListRefundsOf(ctx context.Context, originalID uuid.UUID) ([]models.Sale, error) {
	var refunds []models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("refund_of = ?", originalID).
		Order("created_at ASC").
		Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *repository) UpdateStatus(ctx context.Context, saleID uuid.UUID, status enums.SaleStatus) error {
	return r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("id = ?", saleID).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()}).Error
}

func (r *repository) FindIdempotency(ctx context.Context, scope, key string) (*models.IdempotencyKey, error) {
	var record models.IdempotencyKey
	err := r.db.WithContext(ctx).
		Where("scope = ? AND key = ?", scope, key).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) DeleteExpiredIdempotency(ctx context.Context, scope, key string) error {
	return r.db.WithContext(ctx).
		Where("scope = ? AND key = ? AND expires_at < ?", scope, key, time.Now().UTC()).
		Delete(&models.IdempotencyKey{}).Error
}

func (r *repository) CreateIdempotency(ctx context.Context, record *models.IdempotencyKey) error {
	return r.db.WithContext(ctx).Create(record).Error
}
