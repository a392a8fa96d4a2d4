package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sabrositas/pos-backend/pkg/db/models"
	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/errors"
	"github.com/sabrositas/pos-backend/pkg/pagination"
)

// ListFilter bounds a movement history query.
type ListFilter struct {
	Since *time.Time
	Until *time.Time
	Type  *enums.MovementType
	Limit int
}

// Summary aggregates journal activity over a window.
type Summary struct {
	ByType          map[enums.MovementType]int64 `json:"by_type"`
	ByActor         map[uuid.UUID]int64          `json:"by_actor"`
	ProductsTouched int64                        `json:"products_touched"`
	MovementCount   int64                        `json:"movement_count"`
}

// Journal appends immutable inventory movements and answers historical
// queries. Append must run inside the caller's transaction. Rows are never
// updated or deleted.
type Journal interface {
	WithTx(tx *gorm.DB) Journal
	Append(ctx context.Context, movement *models.InventoryMovement) error
	ListForProduct(ctx context.Context, productID uuid.UUID, filter ListFilter) ([]models.InventoryMovement, error)
	NetChange(ctx context.Context, productID uuid.UUID, since, until *time.Time) (decimal.Decimal, error)
	Summary(ctx context.Context, since, until time.Time) (*Summary, error)
}

type journal struct {
	db *gorm.DB
}

// NewJournal returns a journal bound to the provided database.
func NewJournal(db *gorm.DB) Journal {
	return &journal{db: db}
}

func (j *journal) WithTx(tx *gorm.DB) Journal {
	if tx == nil {
		return j
	}
	return &journal{db: tx}
}

func (j *journal) Append(ctx context.Context, movement *models.InventoryMovement) error {
	if movement == nil {
		return errors.New(errors.CodeInvalidInput, "movement is required")
	}
	if !movement.MovementType.IsValid() {
		return errors.New(errors.CodeUnknownEnum, "unknown movement type").WithDetails(map[string]any{
			"movement_type": string(movement.MovementType),
		})
	}
	if movement.ProductID == uuid.Nil {
		return errors.New(errors.CodeInvalidInput, "movement product id is required")
	}
	if movement.ActorID == uuid.Nil {
		return errors.New(errors.CodeInvalidInput, "movement actor id is required")
	}
	if movement.MovementType == enums.MovementTypeReconciliation {
		// reconciliation carries the signed correction delta
		if movement.Quantity.IsZero() {
			return errors.New(errors.CodeInvalidInput, "reconciliation quantity cannot be zero")
		}
	} else if !movement.Quantity.IsPositive() {
		return errors.New(errors.CodeInvalidInput, "movement quantity must be positive")
	}
	if movement.MovementType.RequiresSaleReference() {
		if movement.ReferenceType == nil || *movement.ReferenceType != models.ReferenceTypeSale || movement.ReferenceID == nil {
			return errors.New(errors.CodeInvalidInput, "sale and return movements must reference a sale")
		}
	}

	var productCount int64
	if err := j.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", movement.ProductID).
		Count(&productCount).Error; err != nil {
		return err
	}
	if productCount == 0 {
		return errors.New(errors.CodeProductUnknown, "product does not exist").WithDetails(map[string]any{
			"product_id": movement.ProductID.String(),
		})
	}

	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	// server time at insert
	movement.CreatedAt = time.Now().UTC()
	return j.db.WithContext(ctx).Create(movement).Error
}

func (j *journal) ListForProduct(ctx context.Context, productID uuid.UUID, filter ListFilter) ([]models.InventoryMovement, error) {
	query := j.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.NormalizeLimit(filter.Limit))

	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil {
		query = query.Where("created_at <= ?", *filter.Until)
	}
	if filter.Type != nil {
		query = query.Where("movement_type = ?", *filter.Type)
	}

	var movements []models.InventoryMovement
	if err := query.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// NetChange replays the journal in Go instead of summing in SQL so decimal
// arithmetic stays exact across dialects.
func (j *journal) NetChange(ctx context.Context, productID uuid.UUID, since, until *time.Time) (decimal.Decimal, error) {
	query := j.db.WithContext(ctx).
		Select("quantity", "movement_type").
		Where("product_id = ?", productID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	if until != nil {
		query = query.Where("created_at <= ?", *until)
	}

	var movements []models.InventoryMovement
	if err := query.Find(&movements).Error; err != nil {
		return decimal.Zero, err
	}

	net := decimal.Zero
	for _, movement := range movements {
		net = net.Add(movement.SignedQuantity())
	}
	return net, nil
}

func (j *journal) Summary(ctx context.Context, since, until time.Time) (*Summary, error) {
	summary := &Summary{
		ByType:  map[enums.MovementType]int64{},
		ByActor: map[uuid.UUID]int64{},
	}

	base := func() *gorm.DB {
		return j.db.WithContext(ctx).Model(&models.InventoryMovement{}).
			Where("created_at >= ? AND created_at <= ?", since, until)
	}

	var byType []struct {
		MovementType enums.MovementType
		Count        int64
	}
	if err := base().Select("movement_type, COUNT(*) AS count").
		Group("movement_type").
		Scan(&byType).Error; err != nil {
		return nil, err
	}
	for _, row := range byType {
		summary.ByType[row.MovementType] = row.Count
		summary.MovementCount += row.Count
	}

	var byActor []struct {
		ActorID uuid.UUID
		Count   int64
	}
	if err := base().Select("actor_id, COUNT(*) AS count").
		Group("actor_id").
		Scan(&byActor).Error; err != nil {
		return nil, err
	}
	for _, row := range byActor {
		summary.ByActor[row.ActorID] = row.Count
	}

	if err := base().Distinct("product_id").Count(&summary.ProductsTouched).Error; err != nil {
		return nil, err
	}
	return summary, nil
}
