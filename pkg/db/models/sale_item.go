package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItem is a line of a sale. UnitPrice and Discount are snapshots taken
// at commit time; the line never re-reads the catalog.
type SaleItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SaleID    uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	Discount  decimal.Decimal `gorm:"column:discount;type:numeric(5,4);not null;default:0" json:"discount"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// LineTotal computes quantity x unit price x (1 - discount) rounded to
// cents with banker's rounding.
func (i SaleItem) LineTotal() decimal.Decimal {
	one := decimal.NewFromInt(1)
	return i.Quantity.Mul(i.UnitPrice).Mul(one.Sub(i.Discount)).RoundBank(2)
}
