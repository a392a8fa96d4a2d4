package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. OnHand is owned by the stock ledger; every
// other writer goes through the catalog service.
type Product struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code              string          `gorm:"column:code;uniqueIndex;not null" json:"code"`
	Name              string          `gorm:"column:name;not null" json:"name"`
	Price             decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	OnHand            decimal.Decimal `gorm:"column:on_hand;type:numeric(12,3);not null;default:0" json:"on_hand"`
	LowStockThreshold decimal.Decimal `gorm:"column:low_stock_threshold;type:numeric(12,3);not null;default:5" json:"low_stock_threshold"`
	Category          string          `gorm:"column:category;not null;default:''" json:"category"`
	Active            bool            `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
