package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sabrositas/pos-backend/pkg/enums"
)

// ReferenceTypeSale marks movements caused by a sale or refund commit.
const ReferenceTypeSale = "sale"

// InventoryMovement is an immutable journal row. Quantity is stored
// positive for every type except reconciliation, which carries the signed
// correction delta; the sign applied during replay comes from the type.
type InventoryMovement struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID     uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index:idx_movements_product_created" json:"product_id"`
	Quantity      decimal.Decimal    `gorm:"column:quantity;type:numeric(12,3);not null" json:"quantity"`
	MovementType  enums.MovementType `gorm:"column:movement_type;type:movement_type;not null" json:"movement_type"`
	ActorID       uuid.UUID          `gorm:"column:actor_id;type:uuid;not null" json:"actor_id"`
	ReferenceType *string            `gorm:"column:reference_type" json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID         `gorm:"column:reference_id;type:uuid" json:"reference_id,omitempty"`
	Note          *string            `gorm:"column:note" json:"note,omitempty"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime;index:idx_movements_product_created" json:"created_at"`
}

// SignedQuantity returns the net effect of the movement on on-hand stock.
func (m InventoryMovement) SignedQuantity() decimal.Decimal {
	switch {
	case m.MovementType.IsInbound():
		return m.Quantity
	case m.MovementType.IsOutbound():
		return m.Quantity.Neg()
	default:
		// reconciliation: quantity already signed
		return m.Quantity
	}
}
