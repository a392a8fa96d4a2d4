package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sabrositas/pos-backend/pkg/enums"
	"github.com/sabrositas/pos-backend/pkg/types"
)

// Sale is the aggregate root for a POS transaction. Refunds are sales with
// negative quantities and totals whose metadata (and RefundOf column) link
// back to the originating sale.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber string              `gorm:"column:invoice_number;uniqueIndex:sales_invoice_number_key;not null" json:"invoice_number"`
	CashierID     uuid.UUID           `gorm:"column:cashier_id;type:uuid;not null" json:"cashier_id"`
	CustomerID    *uuid.UUID          `gorm:"column:customer_id;type:uuid" json:"customer_id,omitempty"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null" json:"payment_method"`
	Status        enums.SaleStatus    `gorm:"column:status;type:sale_status;not null;default:'completed'" json:"status"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	RefundOf      *uuid.UUID          `gorm:"column:refund_of;type:uuid;index" json:"refund_of,omitempty"`
	Metadata      types.SaleMetadata  `gorm:"column:metadata;type:jsonb;serializer:json" json:"metadata"`
	Items         []SaleItem          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsRefund reports whether this sale row compensates another one.
func (s Sale) IsRefund() bool {
	return s.RefundOf != nil && *s.RefundOf != uuid.Nil
}
