package models

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyKey maps a client-supplied key to the sale it produced. Rows
// are written in the same transaction as the sale and purged after expiry.
type IdempotencyKey struct {
	Scope     string    `gorm:"column:scope;primaryKey" json:"scope"`
	Key       string    `gorm:"column:key;primaryKey" json:"key"`
	SaleID    uuid.UUID `gorm:"column:sale_id;type:uuid;not null" json:"sale_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
}
